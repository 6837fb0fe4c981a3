package events

import (
	"context"
	"log/slog"

	"github.com/mailgun/holster/v4/syncutil"

	"github.com/TxnLab/lpstaking/internal/lib/misc"
)

// Sink receives events.  Delivery is best effort; errors are logged by the Emitter and otherwise ignored.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Emitter fans each event out to every sink in parallel, waiting for all of them before returning.
// A nil *Emitter drops everything.
type Emitter struct {
	logger *slog.Logger
	sinks  []Sink
}

func NewEmitter(logger *slog.Logger, sinks ...Sink) *Emitter {
	return &Emitter{logger: logger, sinks: sinks}
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || len(e.sinks) == 0 {
		return
	}
	var wg syncutil.WaitGroup
	for _, sink := range e.sinks {
		wg.Run(func(val interface{}) error {
			return val.(Sink).Emit(ctx, ev)
		}, sink)
	}
	for _, err := range wg.Wait() {
		misc.Warnf(e.logger, "event sink failed for %s event on pool %s: %v", ev.Kind(), ev.Meta().Pool, err)
	}
}

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(ctx context.Context, ev Event) error {
	l.Logger.InfoContext(ctx, "staking event", "kind", string(ev.Kind()), "pool", ev.Meta().Pool, "owner", ev.Owner(), "event", ev)
	return nil
}
