package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		if LoggerFromContext(r.Context()) == nil {
			t.Error("LoggerFromContext() = nil")
		}
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"propagated", "abc-123", true},
		{"generated", "", false},
		{"oversized replaced", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			echoed := rec.Header().Get(RequestIDHeader)
			if echoed == "" || echoed != seen {
				t.Fatalf("echoed %q, context %q", echoed, seen)
			}
			if tt.keep && echoed != tt.incoming {
				t.Errorf("request ID = %q, want %q", echoed, tt.incoming)
			}
			if !tt.keep && len(echoed) != 36 {
				t.Errorf("generated ID %q is not a UUID", echoed)
			}
		})
	}
}

func TestContextHelpers_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequestIDFromContext(req.Context()) != "" {
		t.Error("RequestIDFromContext() on bare context != \"\"")
	}
	if KeyNameFromContext(req.Context()) != "" {
		t.Error("KeyNameFromContext() on bare context != \"\"")
	}
	if LoggerFromContext(req.Context()) == nil {
		t.Error("LoggerFromContext() on bare context = nil")
	}
}
