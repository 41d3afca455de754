package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	tests := []struct {
		name        string
		builder     *JSONResponseBuilder
		wantStatus  int
		wantBody    string
		wantHeaders map[string]string
	}{
		{
			name:       "ok body",
			builder:    OK(map[string]int{"n": 1}),
			wantStatus: http.StatusOK,
			wantBody:   `{"n":1}` + "\n",
		},
		{
			name:       "created",
			builder:    Created(struct{ ID string }{"x"}),
			wantStatus: http.StatusCreated,
			wantBody:   `{"ID":"x"}` + "\n",
		},
		{
			name:       "no content has no body",
			builder:    NoContent(),
			wantStatus: http.StatusNoContent,
			wantBody:   "",
		},
		{
			name:       "error envelope",
			builder:    UnprocessableEntityError("label is required"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"label is required"}` + "\n",
		},
		{
			name:        "rate limited",
			builder:     TooManyRequestsError(),
			wantStatus:  http.StatusTooManyRequests,
			wantHeaders: map[string]string{"Retry-After": "60"},
		},
		{
			name:        "custom header",
			builder:     NewJSONResponse().Header("X-Test", "yes").Body([]int{1, 2}),
			wantStatus:  http.StatusOK,
			wantBody:    "[1,2]\n",
			wantHeaders: map[string]string{"X-Test": "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusNoContent && rr.Body.Len() != 0 {
				t.Errorf("204 body = %q, want empty", rr.Body.String())
			}
			if rr.Body.Len() > 0 {
				if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
			for k, v := range tt.wantHeaders {
				if got := rr.Header().Get(k); got != v {
					t.Errorf("header %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(map[string]any{"bad": make(chan int)}).Write(rr)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("error = %q, want internal error", body.Error)
	}
}
