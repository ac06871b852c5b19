package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const DefaultOperationTimeout = 5 * time.Second

// WithTimeout bounds a repository call. Inside a transaction the session deadline applies instead.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if d <= 0 {
		d = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, d)
}
