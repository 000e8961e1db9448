package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/churchboard/internal/apperr"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeInvalidArgument, "request body too large")
		case errors.Is(err, io.EOF):
			return apperr.InvalidArgument("request body is required")
		default:
			return apperr.InvalidArgument("malformed JSON body")
		}
	}
	return nil
}

// dateLayouts are the purchase date formats the client may send.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", time.DateOnly}

// parseDate parses an optional client date. Empty means unset.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.InvalidArgument("purchaseDate must be an ISO date")
}
