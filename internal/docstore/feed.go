package docstore

import (
	"context"
	"sync"
)

// Feed delivers documents to a subscriber callback on its own goroutine.
// Pushes never block: when the callback is busy only the newest pending
// document is kept.
type Feed struct {
	fn   func(Document)
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending Document
	has     bool
	once    sync.Once
}

// NewFeed starts the delivery goroutine for fn.
func NewFeed(fn func(Document)) *Feed {
	f := &Feed{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		f.mu.Lock()
		doc, has := f.pending, f.has
		f.pending, f.has = nil, false
		f.mu.Unlock()
		if !has {
			continue
		}
		select {
		case <-f.done:
			return
		default:
		}
		f.fn(doc)
	}
}

// Push queues doc for delivery, replacing any undelivered document.
func (f *Feed) Push(doc Document) {
	select {
	case <-f.done:
		return
	default:
	}
	f.mu.Lock()
	f.pending, f.has = doc.Clone(), true
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) Cancel() {
	f.once.Do(func() { close(f.done) })
}

// Done is closed once the feed is cancelled.
func (f *Feed) Done() <-chan struct{} { return f.done }

type subscription struct {
	feed   *Feed
	cancel context.CancelFunc
}

func (s *subscription) Cancel() {
	s.cancel()
	s.feed.Cancel()
}

// Bind ties feed to ctx. The returned context is cancelled when the feed is
// cancelled, and cancelling ctx cancels the feed; backends run their watch
// loops under it.
func Bind(ctx context.Context, feed *Feed) (context.Context, Subscription) {
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-subCtx.Done():
			feed.Cancel()
		case <-feed.Done():
			cancel()
		}
	}()
	return subCtx, &subscription{feed: feed, cancel: cancel}
}
