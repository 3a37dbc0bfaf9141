package core

import "strings"

// RateMap maps a currency to the units of that currency worth 1 unit of the base.
type RateMap map[Currency]float64

func validRate(rate float64) bool {
	return IsFinite(rate) && rate > 0
}

func (r RateMap) rate(c Currency) (float64, bool) {
	rate, ok := r[c]
	if !ok || !validRate(rate) {
		return 0, false
	}
	return rate, true
}

// Convert converts amount between currencies through BaseCurrency.
// It never fails: a non-finite amount becomes 0 and a missing or invalid
// rate returns the original amount unconverted.
func Convert(amount float64, from, to Currency, rates RateMap) float64 {
	return ConvertWithBase(amount, from, to, rates, BaseCurrency)
}

// ConvertWithBase is Convert with an explicit pivot currency.
func ConvertWithBase(amount float64, from, to Currency, rates RateMap, base Currency) float64 {
	if !IsFinite(amount) {
		return 0
	}
	if from == "" || from == to {
		return amount
	}

	amountInBase := amount
	if from != base {
		fromRate, ok := rates.rate(from)
		if !ok {
			return amount
		}
		amountInBase = amount / fromRate
	}

	if to == base {
		return amountInBase
	}

	toRate, ok := rates.rate(to)
	if !ok {
		return amount
	}
	return amountInBase * toRate
}

// ConvertToBase converts amount from currency into base.
func ConvertToBase(amount float64, from Currency, rates RateMap, base Currency) float64 {
	return ConvertWithBase(amount, from, base, rates, base)
}

// ConvertFromBase converts an amount expressed in base into target.
func ConvertFromBase(amount float64, target Currency, rates RateMap, base Currency) float64 {
	return ConvertWithBase(amount, base, target, rates, base)
}

func ConvertToEuro(amount float64, currency Currency, rates RateMap) float64 {
	return ConvertToBase(amount, currency, rates, EUR)
}

func ConvertFromEuro(amount float64, currency Currency, rates RateMap) float64 {
	return ConvertFromBase(amount, currency, rates, EUR)
}

// NeedsConversion reports whether an amount in currency must wait for a live
// rate before it can be aggregated in base.
func NeedsConversion(currency, base Currency) bool {
	return currency != "" && currency != base
}

// BuildRateMap builds a RateMap from a provider payload of code -> rate
// relative to EUR. EUR is pinned to 1 even when the payload carries its own
// EUR entry, since every rate is quoted against it. Unknown codes and
// non-positive or non-finite rates are dropped.
func BuildRateMap(payload map[string]float64) RateMap {
	rates := RateMap{EUR: 1}
	for code, rate := range payload {
		c := Currency(strings.ToUpper(strings.TrimSpace(code)))
		if c == EUR || !c.Valid() || !validRate(rate) {
			continue
		}
		rates[c] = rate
	}
	return rates
}
