package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"conti/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    MonthParams
		wantErr bool
	}{
		{"absent", url.Values{}, MonthParams{}, false},
		{"both set", url.Values{"year": {"2024"}, "month": {"2"}}, MonthParams{Year: 2024, Month: time.February, Set: true}, false},
		{"whitespace trimmed", url.Values{"year": {" 2024 "}, "month": {" 12 "}}, MonthParams{Year: 2024, Month: time.December, Set: true}, false},
		{"only year", url.Values{"year": {"2024"}}, MonthParams{}, true},
		{"only month", url.Values{"month": {"3"}}, MonthParams{}, true},
		{"month out of range", url.Values{"year": {"2024"}, "month": {"0"}}, MonthParams{}, true},
		{"non-numeric year", url.Values{"year": {"abc"}, "month": {"3"}}, MonthParams{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("expected errBadRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMonthParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMonthParamsTime(t *testing.T) {
	got := MonthParams{Year: 2024, Month: time.March, Set: true}.Time()
	if !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time() = %v", got)
	}
}

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{`12.5`, 12.5, false},
		{`"12.5"`, 12.5, false},
		{`"12,5"`, 12.5, false},
		{`" 7 "`, 7, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`""`, 0, true},
	}
	for _, tt := range tests {
		var a Amount
		err := json.Unmarshal([]byte(tt.in), &a)
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("Unmarshal(%s) error = %v, want ErrInvalidAmount", tt.in, err)
			}
			continue
		}
		if err != nil || a != tt.want {
			t.Errorf("Unmarshal(%s) = %v, %v; want %v", tt.in, a, err, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"name":"x"}`, nil},
		{"empty", ``, errBadRequest},
		{"unknown field", `{"name":"x","extra":1}`, errBadRequest},
		{"trailing data", `{"name":"x"}{"name":"y"}`, errBadRequest},
		{"wrong type", `{"name":5}`, errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr == nil {
				if err != nil || p.Name != "x" {
					t.Fatalf("decodeJSON = %+v, %v", p, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(httptest.NewRecorder(), r, &p); !errors.Is(err, errBadRequest) {
		t.Errorf("expected errBadRequest, got %v", err)
	}
}

func TestPathParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/api/expenses/42", nil)
	r.SetPathValue("id", "42")
	if id, err := pathID(r); err != nil || id != 42 {
		t.Errorf("pathID = %d, %v", id, err)
	}

	r.SetPathValue("id", "-1")
	if _, err := pathID(r); !errors.Is(err, errBadRequest) {
		t.Errorf("expected errBadRequest for negative id, got %v", err)
	}

	r.SetPathValue("date", "2024-03-15")
	if d, err := pathDate(r); err != nil || d != "2024-03-15" {
		t.Errorf("pathDate = %q, %v", d, err)
	}
	r.SetPathValue("date", "2024-3-15")
	if _, err := pathDate(r); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  rent  ":        "rent",
		"a\x00b\x07c":     "abc",
		"line1\nline2\tx": "line1\nline2\tx",
		"\t\tpadded\n":    "padded",
		"Café & Bäckerei": "Café & Bäckerei",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
