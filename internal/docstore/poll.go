package docstore

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// FetchFunc reads a document together with a revision that changes on
// every write.
type FetchFunc func(ctx context.Context) (rev int64, doc Document, err error)

// Poll pushes the document into feed whenever its revision changes, checking
// every interval and whenever nudge fires. It returns when ctx is done or
// the feed is cancelled. Fetch errors are logged and retried on the next
// tick.
func Poll(ctx context.Context, interval time.Duration, nudge <-chan struct{}, fetch FetchFunc, feed *Feed, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last int64 = -1
	check := func() {
		rev, doc, err := fetch(ctx)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return
			}
			if ctx.Err() == nil {
				logger.Warn("docstore poll failed", slog.String("error", err.Error()))
			}
			return
		}
		if rev != last {
			last = rev
			feed.Push(doc)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-feed.Done():
			return
		case <-ticker.C:
			check()
		case <-nudge:
			check()
		}
	}
}
