package email

import (
	"context"
)

// Service is the outbound email transport. The reminder engine needs
// exactly one operation from it; templating and retries live elsewhere.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}
