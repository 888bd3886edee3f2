package game

import (
	"context"
	"time"
)

// contextWithTimeout is the bound for the few synchronous database reads
// the session layer performs outside the async pipeline.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
