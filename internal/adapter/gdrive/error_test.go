package gdrive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/Ning0612/mercury/internal/domain"
)

// TestMapError tests error mapping from Google API errors to domain errors
func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		input error
		want  error
	}{
		{"404 not found", &googleapi.Error{Code: 404}, domain.ErrNotFound},
		{"401 unauthenticated", &googleapi.Error{Code: 401}, domain.ErrPermissionDenied},
		{"403 permission denied", &googleapi.Error{Code: 403}, domain.ErrPermissionDenied},
		{"409 already exists", &googleapi.Error{Code: 409}, domain.ErrAlreadyExists},
		{"wrapped 404", fmt.Errorf("list: %w", &googleapi.Error{Code: 404}), domain.ErrNotFound},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
		{"non-googleapi error with notFound string", errors.New("file notFound in drive"), domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.input); !errors.Is(got, tt.want) {
				t.Errorf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if got := mapError(nil); got != nil {
		t.Errorf("mapError(nil) = %v, want nil", got)
	}

	rateLimited := &googleapi.Error{Code: 429}
	got := mapError(rateLimited)
	if !strings.Contains(got.Error(), "rate limit exceeded") {
		t.Errorf("mapError(429) = %v, should mention the rate limit", got)
	}
	if !errors.Is(got, rateLimited) {
		t.Error("mapError(429) should wrap the original error")
	}

	for _, err := range []error{&googleapi.Error{Code: 500, Message: "server error"}, errors.New("generic error")} {
		if got := mapError(err); got != err {
			t.Errorf("mapError(%v) = %v, want the original error", err, got)
		}
	}
}
