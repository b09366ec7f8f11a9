// Package cosmetics resolves a user's equipped frame/badge from an external
// profile source at join time. The lookup is bounded: a slow or unreachable
// source must never hold up seating a player, so a timeout always falls
// back to defaults rather than propagating an error.
package cosmetics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cardroom/internal/service/game"
)

const lookupTimeout = 2500 * time.Millisecond

// Source resolves a user's cosmetics. Production wires StaticSource; tests
// wire a fake.
type Source interface {
	Cosmetics(ctx context.Context, userID string) (game.Cosmetics, error)
}

// Resolver applies the bounded-timeout/default-on-failure policy around a
// Source.
type Resolver struct {
	src    Source
	logger *zap.Logger
}

func NewResolver(src Source, logger *zap.Logger) *Resolver {
	return &Resolver{src: src, logger: logger}
}

// Resolve returns userID's cosmetics, or the zero value if the source
// errors or does not respond within the lookup timeout.
func (r *Resolver) Resolve(ctx context.Context, userID string) game.Cosmetics {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	type outcome struct {
		c   game.Cosmetics
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := r.src.Cosmetics(ctx, userID)
		done <- outcome{c: c, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			r.logger.Warn("cosmetics lookup failed, applying defaults", zap.String("userId", userID), zap.Error(o.err))
			return game.Cosmetics{}
		}
		return o.c
	case <-ctx.Done():
		r.logger.Warn("cosmetics lookup timed out, applying defaults", zap.String("userId", userID))
		return game.Cosmetics{}
	}
}

// StaticSource is a trivial Source that always returns the zero Cosmetics,
// used when no external profile service is configured.
type StaticSource struct{}

func (StaticSource) Cosmetics(ctx context.Context, userID string) (game.Cosmetics, error) {
	return game.Cosmetics{}, nil
}
