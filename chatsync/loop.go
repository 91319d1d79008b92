package chatsync

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
)

// Poll intervals for the three independent loops. The open conversation polls
// finest, the list coarser, the badge coarsest.
const (
	MessagePollInterval = 3 * time.Second
	ListPollInterval    = 10 * time.Second
	BadgePollInterval   = 15 * time.Second
)

// Loop drives one poll function on a fixed interval until the context ends.
// Each loop guards only itself; there is no cross-loop coordination.
type Loop struct {
	name     string
	interval time.Duration
	poll     func(context.Context) error
}

// NewLoop wraps a poll function in a named ticker loop.
func NewLoop(name string, interval time.Duration, poll func(context.Context) error) *Loop {
	return &Loop{name: name, interval: interval, poll: poll}
}

// Run blocks until ctx is done. Poll errors are logged and swallowed: the
// next tick retries naturally, and a dropped overlapping tick is not an error
// worth reporting.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.poll(ctx); err != nil && !errors.Is(err, ErrPollInFlight) {
				log.Printf("chatsync: %s loop tick failed: %v", l.name, err)
			}
		}
	}
}
