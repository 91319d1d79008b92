package chatsync

import (
	"context"
	"sync/atomic"
)

// Badge tracks the viewer's total unread count for the navigation badge. The
// aggregate is recomputed by the store on every poll rather than maintained
// incrementally, so multiple sessions cannot drift apart.
type Badge struct {
	viewerID uint
	gateway  Gateway

	token chan struct{}
	total atomic.Int64
}

// NewBadge creates a badge poller for one viewer.
func NewBadge(viewerID uint, gateway Gateway) *Badge {
	b := &Badge{
		viewerID: viewerID,
		gateway:  gateway,
		token:    make(chan struct{}, 1),
	}
	b.token <- struct{}{}
	return b
}

// Poll refreshes the aggregate. A failed fetch keeps the previous value;
// overlapping ticks are dropped.
func (b *Badge) Poll(ctx context.Context) error {
	select {
	case <-b.token:
	default:
		return ErrPollInFlight
	}
	defer func() { b.token <- struct{}{} }()

	total, err := b.gateway.TotalUnread(ctx, b.viewerID)
	if err != nil {
		return err
	}
	b.total.Store(int64(total))
	return nil
}

// Total returns the last successfully polled aggregate.
func (b *Badge) Total() int {
	return int(b.total.Load())
}
