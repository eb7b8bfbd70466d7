package net_test

import (
	"context"
	"testing"

	pnet "pursue/internal/platform/net"
)

func TestWithRequest_And_Getters(t *testing.T) {
	base := context.Background()

	t.Run("sets request id", func(t *testing.T) {
		ctx := pnet.WithRequest(base, "req-123")

		if got := pnet.RequestID(ctx); got != "req-123" {
			t.Fatalf("RequestID got %q want %q", got, "req-123")
		}
	})

	t.Run("empty id is a no-op", func(t *testing.T) {
		ctx := pnet.WithRequest(base, "")

		if got := pnet.RequestID(ctx); got != "" {
			t.Fatalf("RequestID got %q want empty", got)
		}
	})
}

func TestWithUser_And_UserID(t *testing.T) {
	base := context.Background()

	t.Run("sets user id", func(t *testing.T) {
		ctx := pnet.WithUser(base, "u-1")
		if got := pnet.UserID(ctx); got != "u-1" {
			t.Fatalf("UserID got %q want %q", got, "u-1")
		}
	})

	t.Run("empty user id is a no-op", func(t *testing.T) {
		ctx := pnet.WithUser(base, "")
		if got := pnet.UserID(ctx); got != "" {
			t.Fatalf("UserID got %q want empty", got)
		}
	})

	t.Run("absent on base context", func(t *testing.T) {
		if got := pnet.UserID(base); got != "" {
			t.Fatalf("UserID got %q want empty", got)
		}
	})
}
