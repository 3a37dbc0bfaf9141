package core

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConvertIdentity(t *testing.T) {
	rates := RateMap{EUR: 1, USD: 1.08}
	amounts := []float64{0, 1, 99.99, -42.5, 1e9}
	for _, c := range []Currency{EUR, USD} {
		for _, a := range amounts {
			if got := Convert(a, c, c, rates); got != a {
				t.Fatalf("Convert(%v, %s, %s) = %v", a, c, c, got)
			}
			if got := Convert(a, c, c, nil); got != a {
				t.Fatalf("Convert with nil rates changed %v to %v", a, got)
			}
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	for _, r := range []float64{0.5, 1.0842, 1.17, 3} {
		rates := RateMap{USD: r}
		for _, a := range []float64{0.01, 12.34, 1000, 98765.43} {
			eur := ConvertToEuro(a, USD, rates)
			back := ConvertFromEuro(eur, USD, rates)
			if math.Abs(back-a) > 1e-9*math.Max(1, a) {
				t.Fatalf("round trip of %v at rate %v gave %v", a, r, back)
			}
		}
	}
}

func TestConvertMissingRate(t *testing.T) {
	if got := ConvertToEuro(100, USD, RateMap{}); got != 100 {
		t.Fatalf("expected unconverted 100, got %v", got)
	}
	if got := ConvertFromEuro(100, USD, RateMap{}); got != 100 {
		t.Fatalf("expected unconverted 100, got %v", got)
	}
	invalid := []float64{0, -1, math.NaN(), math.Inf(1)}
	for _, r := range invalid {
		if got := ConvertToEuro(50, USD, RateMap{USD: r}); got != 50 {
			t.Fatalf("rate %v: expected 50, got %v", r, got)
		}
	}
}

func TestConvert(t *testing.T) {
	rates := RateMap{EUR: 1, USD: 1.25}
	cases := []struct {
		name     string
		amount   float64
		from, to Currency
		want     float64
	}{
		{"usd to eur", 125, USD, EUR, 100},
		{"eur to usd", 100, EUR, USD, 125},
		{"empty source is identity", 10, "", USD, 10},
		{"nan becomes zero", math.NaN(), USD, EUR, 0},
		{"infinite becomes zero", math.Inf(-1), EUR, USD, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Convert(tc.amount, tc.from, tc.to, rates); !approx(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConvertTargetRateMissingReturnsOriginal(t *testing.T) {
	// USD known, a third currency is not: the original amount comes back, not the EUR value.
	rates := RateMap{USD: 2}
	if got := ConvertWithBase(10, USD, Currency("GBP"), rates, EUR); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestNeedsConversion(t *testing.T) {
	if NeedsConversion("", EUR) {
		t.Fatal("empty currency should not need conversion")
	}
	if NeedsConversion(EUR, EUR) {
		t.Fatal("base currency should not need conversion")
	}
	if !NeedsConversion(USD, EUR) {
		t.Fatal("USD should need conversion")
	}
}

func TestBuildRateMap(t *testing.T) {
	got := BuildRateMap(nil)
	if len(got) != 1 || got[EUR] != 1 {
		t.Fatalf("expected base-only map, got %v", got)
	}

	got = BuildRateMap(map[string]float64{
		"usd": 1.08,
		"GBP": 0.85,
		"jpy": -3,
	})
	if got[USD] != 1.08 || got[EUR] != 1 {
		t.Fatalf("unexpected map %v", got)
	}
	if len(got) != 2 {
		t.Fatalf("unknown codes should be dropped, got %v", got)
	}

	got = BuildRateMap(map[string]float64{"USD": math.NaN()})
	if _, ok := got[USD]; ok {
		t.Fatalf("NaN rate should be dropped, got %v", got)
	}
}

func TestBuildRateMapPinsBase(t *testing.T) {
	got := BuildRateMap(map[string]float64{"EUR": 0.92, "USD": 1.08})
	if got[EUR] != 1 {
		t.Fatalf("EUR = %v, want the pivot pinned at 1", got[EUR])
	}
	if v := Convert(100, EUR, USD, got); math.Abs(v-108) > 1e-9 {
		t.Errorf("Convert(100 EUR->USD) = %v, want 108", v)
	}
}
