package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: dial tcp: refused", ErrTransport), "transport"},
		{fmt.Errorf("%w: bad rcpt", ErrInvalidDestination), "invalid_destination"},
		{ErrNotConfigured, "not_configured"},
		{fmt.Errorf("send: %w", context.DeadlineExceeded), "timeout"},
		{errors.New("boom"), "unknown"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Fatalf("Kind(%v)=%q, want %q", c.err, got, c.want)
		}
	}
}

func TestPermanent(t *testing.T) {
	if !Permanent(fmt.Errorf("%w: x", ErrInvalidDestination)) {
		t.Fatalf("invalid destination should be permanent")
	}
	if Permanent(fmt.Errorf("%w: x", ErrTransport)) {
		t.Fatalf("transport errors are retriable")
	}
}
