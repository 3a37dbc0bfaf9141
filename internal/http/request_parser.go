package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"conti/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input (as opposed to invalid values).
var errBadRequest = errors.New("bad request")

// Amount decodes from a JSON number or from a string such as "12,5".
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = raw
	}
	v, ok := core.ParseDecimal(s)
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	*a = Amount(v)
	return nil
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		for _, sentinel := range []error{core.ErrInvalidAmount, core.ErrInvalidDate} {
			if errors.Is(err, sentinel) {
				return err
			}
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

// MonthParams is an optional year/month pair from the query string.
type MonthParams struct {
	Year  int
	Month time.Month
	Set   bool
}

// Time returns the first day of the month in UTC.
func (p MonthParams) Time() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonthParams reads "year" and "month". Both must be given together.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	ys := strings.TrimSpace(query.Get("year"))
	ms := strings.TrimSpace(query.Get("month"))
	if ys == "" && ms == "" {
		return MonthParams{}, nil
	}
	if ys == "" || ms == "" {
		return MonthParams{}, fmt.Errorf("%w: year and month must be given together", errBadRequest)
	}

	year, err := strconv.Atoi(ys)
	if err != nil || year < 1970 || year > 9999 {
		return MonthParams{}, fmt.Errorf("%w: invalid year %q", errBadRequest, ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return MonthParams{}, fmt.Errorf("%w: invalid month %q", errBadRequest, ms)
	}
	return MonthParams{Year: year, Month: time.Month(month), Set: true}, nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// pathDate reads the {date} path segment as a YYYY-MM-DD key.
func pathDate(r *http.Request) (string, error) {
	raw := r.PathValue("date")
	if !core.IsValidDateString(raw) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, raw)
	}
	return raw, nil
}
