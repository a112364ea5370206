package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx of the call site that produced err up to the
// handler that finally logs it.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string { return e.err.Error() }

func (e *errorWithLogCtx) Unwrap() error { return e.err }

// Error attaches the LogCtx of ctx to err. Rewrapping keeps the chain and fills the
// newer context from the older one.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c, hasCtx := ctx.Value(LogCtxKey).(LogCtx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		if !hasCtx {
			return err
		}
		return &errorWithLogCtx{err: err, logCtx: merge(c, e.logCtx)}
	}

	return &errorWithLogCtx{err: err, logCtx: c}
}

// ErrorCtx returns ctx enriched with the LogCtx recorded on err, if any.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
