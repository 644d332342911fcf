package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alcyxob/fitness-coach/internal/observability"
)

// Option tunes a service at construction time.
type Option func(*options)

type options struct {
	now     func() time.Time
	lockTTL time.Duration
}

func defaultOptions() options {
	return options{now: time.Now, lockTTL: 3 * time.Minute}
}

// WithClock replaces the wall clock. Week boundaries and years derive from it.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLockTTL sets how long a per-user generation lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// startSpan opens a service span. Call the returned func with the final error.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := observability.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
