package auth

import (
	"errors"
	"testing"

	"github.com/axionslab/datavault/internal/apierr"
)

func TestBearerToken(t *testing.T) {
	token, errParse := BearerToken("Bearer abc123")
	if errParse != nil {
		t.Fatalf("expected parse ok, got %v", errParse)
	}
	if token != "abc123" {
		t.Fatalf("expected abc123, got %q", token)
	}

	for _, header := range []string{"", "abc123", "bearer abc123", "Bearer ", "Basic abc123"} {
		if _, errBad := BearerToken(header); !errors.Is(errBad, apierr.ErrUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", header, errBad)
		}
	}
}
