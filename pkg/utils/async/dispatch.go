package async

import (
	"context"
	"sync"

	"github.com/secmon-lab/riskdesk/pkg/utils/errutil"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

// Dispatcher runs handlers on background goroutines detached from the
// request context. Wait blocks until every dispatched handler has returned.
type Dispatcher struct {
	wg sync.WaitGroup
}

// Dispatch executes a handler function asynchronously in a new goroutine.
// The handler gets a background context carrying the caller's logger; errors
// and panics are logged and never propagate to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until all dispatched handlers finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
