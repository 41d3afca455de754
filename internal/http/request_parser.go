// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding and validating request data.

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

	"bilancio/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// maxWindowMonths bounds the ?window= parameter.
const maxWindowMonths = 60

var errEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes a single JSON value from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: unexpected data after value")
	}
	return nil
}

// ParseWindow reads ?window=N. Absent means 0 (use the configured default).
func ParseWindow(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("window"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxWindowMonths {
		return 0, fmt.Errorf("invalid window %q: must be between 1 and %d", v, maxWindowMonths)
	}
	return n, nil
}

// ParseNow reads ?now=YYYY-MM-DD, falling back to fallback when absent.
func ParseNow(query url.Values, fallback time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get("now"))
	if v == "" {
		return fallback, nil
	}
	t, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid now %q: %w", v, err)
	}
	return t, nil
}

// ParseSince reads ?since=YYYY-MM-DD. Absent means the zero time.
func ParseSince(query url.Values) (time.Time, error) {
	v := strings.TrimSpace(query.Get("since"))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since %q: %w", v, err)
	}
	return t, nil
}

// ParseLedgerKind validates the {kind} path segment.
func ParseLedgerKind(s string) (core.LedgerKind, error) {
	kind := core.LedgerKind(strings.TrimSpace(s))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, s)
	}
	return kind, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
