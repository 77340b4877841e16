package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestFriendlyError_PgCodes(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unique violation", "23505", "already exists"},
		{"foreign key violation", "23503", "referenced record does not exist"},
		{"not null violation", "23502", "is missing"},
		{"value too long", "22001", "too long"},
		{"invalid format", "22P02", "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ColumnName: "name"}

			got := friendlyError("save client", pgErr)

			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("expected message containing %q, got %q", tt.want, got.Error())
			}
			if !strings.HasPrefix(got.Error(), "save client:") {
				t.Errorf("expected operation prefix, got %q", got.Error())
			}
			// The original error stays reachable for logs.
			var unwrapped *pgconn.PgError
			if !errors.As(got, &unwrapped) {
				t.Error("expected the pg error to remain wrapped")
			}
		})
	}
}

func TestFriendlyError_ContextErrors(t *testing.T) {
	got := friendlyError("save job", fmt.Errorf("exec: %w", context.DeadlineExceeded))
	if !strings.Contains(got.Error(), "timed out") {
		t.Errorf("expected timeout message, got %q", got.Error())
	}

	got = friendlyError("save job", context.Canceled)
	if !strings.Contains(got.Error(), "cancelled") {
		t.Errorf("expected cancellation message, got %q", got.Error())
	}
}

func TestFriendlyError_Fallback(t *testing.T) {
	cause := errors.New("connection reset")

	got := friendlyError("save equipment", cause)

	if !errors.Is(got, cause) {
		t.Error("expected the cause to remain wrapped")
	}
	if !strings.HasPrefix(got.Error(), "save equipment:") {
		t.Errorf("expected operation prefix, got %q", got.Error())
	}
}
