package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxBodyBytes = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body exceeds limit")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// flexInt64 accepts JSON numbers, numeric strings, and null. Fractional
// values are truncated toward zero.
type flexInt64 int64

func (v *flexInt64) UnmarshalJSON(data []byte) error {
	parsed, ok := parseFlexNumber(data)
	if !ok {
		*v = 0
		return nil
	}
	*v = flexInt64(parsed)
	return nil
}

// flexFloat accepts JSON numbers, numeric strings, and null.
type flexFloat float64

func (v *flexFloat) UnmarshalJSON(data []byte) error {
	parsed, ok := parseFlexNumber(data)
	if !ok {
		*v = 0
		return nil
	}
	*v = flexFloat(parsed)
	return nil
}

// flexInt accepts JSON numbers, numeric strings, and null.
type flexInt int

func (v *flexInt) UnmarshalJSON(data []byte) error {
	parsed, ok := parseFlexNumber(data)
	if !ok {
		*v = 0
		return nil
	}
	*v = flexInt(parsed)
	return nil
}

func parseFlexNumber(data []byte) (float64, bool) {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return 0, false
	}
	raw = strings.Trim(raw, `"`)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
