package dispatch

import (
	"context"
	"time"
)

// turnSweepInterval is how often the dispatcher polls every live lobby for
// an elapsed turn deadline. Coarser than the deadlines themselves (turn
// timeouts run in tens of seconds), so a lobby's clock only ever fires a
// little late, never early.
const turnSweepInterval = time.Second

// RunTimeoutSweep polls every live lobby for an elapsed turn deadline until
// ctx is cancelled. Each engine's HandleTurnTimeout is a no-op unless its
// own deadline has actually passed, so sweeping lobbies that aren't waiting
// on anyone costs a lock/unlock and nothing more.
func (d *Dispatcher) RunTimeoutSweep(ctx context.Context) {
	ticker := time.NewTicker(turnSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

func (d *Dispatcher) sweepOnce() {
	pokerLobbies, unoLobbies := d.registry.AllLobbies()
	now := time.Now()
	for _, l := range pokerLobbies {
		l.HandleTurnTimeout(now)
		d.settlePokerReward(l)
	}
	for _, l := range unoLobbies {
		l.HandleTurnTimeout(now)
		d.settleUnoReward(l)
	}
}
