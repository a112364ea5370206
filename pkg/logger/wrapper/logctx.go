package wrap

import (
	"context"
)

// LogCtx is the request-scoped set of attributes the logger attaches to every record.
type LogCtx struct {
	Action    string
	UserID    string
	RequestID string
	RideID    string
}

type logCtxKeyStruct struct{}

// LogCtxKey is the context key the logger's handler reads LogCtx from.
var LogCtxKey = &logCtxKeyStruct{}

// FromContext returns the LogCtx carried by ctx, zero when there is none.
func FromContext(ctx context.Context) LogCtx {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc
}

// WithLogCtx stores lc in ctx; empty fields keep the values already present.
func WithLogCtx(ctx context.Context, lc LogCtx) context.Context {
	return context.WithValue(ctx, LogCtxKey, merge(lc, FromContext(ctx)))
}

func update(ctx context.Context, set func(*LogCtx)) context.Context {
	lc := FromContext(ctx)
	set(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID = userID })
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

func WithRideID(ctx context.Context, rideID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RideID = rideID })
}

// WithAction names the operation in progress, e.g. types.ActionAcceptRide.
func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	return FromContext(ctx).RequestID
}

// merge fills empty fields of lc from fallback.
func merge(lc, fallback LogCtx) LogCtx {
	if lc.Action == "" {
		lc.Action = fallback.Action
	}
	if lc.UserID == "" {
		lc.UserID = fallback.UserID
	}
	if lc.RequestID == "" {
		lc.RequestID = fallback.RequestID
	}
	if lc.RideID == "" {
		lc.RideID = fallback.RideID
	}
	return lc
}
