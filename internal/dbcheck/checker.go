// Package dbcheck reports whether the user-records store answers a minimal query.
package dbcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dbcheck/internal/platform/logging"
	"dbcheck/internal/users"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SampleSize is the row bound of the probe query.
const SampleSize = 1

var errNoStore = errors.New("dbcheck: no record store configured")

// UserFetcher is the record store seen by the checker.
type UserFetcher interface {
	FetchUsers(ctx context.Context, limit int) ([]users.User, error)
}

type Checker struct {
	users   UserFetcher
	log     *zap.Logger
	tracer  trace.Tracer
	metrics *checkMetrics
}

type Option func(*options)

type options struct {
	tp trace.TracerProvider
	mp metric.MeterProvider
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// New builds a Checker over store. Providers default to the otel globals.
func New(store UserFetcher, log *zap.Logger, opts ...Option) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{tp: otel.GetTracerProvider(), mp: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newCheckMetrics(o.mp)
	if err != nil {
		log.Warn("dbcheck metrics disabled (init failed)", zap.Error(err))
	}

	return &Checker{
		users:   store,
		log:     log,
		tracer:  o.tp.Tracer("dbcheck"),
		metrics: m,
	}
}

// CheckDatabase makes a single attempt to read at most SampleSize users.
// It never returns an error and never panics: every failure becomes a Failure
// and is logged once.
func (c *Checker) CheckDatabase(ctx context.Context) (res Result) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "dbcheck.CheckDatabase")
	defer func() {
		c.metrics.record(ctx, res, time.Since(start))
		span.End()
	}()

	sample, err := c.fetch(ctx)
	if err != nil {
		logging.WithTrace(ctx, logging.From(ctx, c.log)).Error("database connection error", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "database connection failed")
		return Failure{Message: MsgFailure, ErrorDetail: describe(err)}
	}

	if sample == nil {
		sample = []users.User{}
	}
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	return Success{Message: MsgSuccess, Sample: sample}
}

func (c *Checker) fetch(ctx context.Context) (sample []users.User, err error) {
	if c.users == nil {
		return nil, errNoStore
	}
	defer func() {
		if p := recover(); p != nil {
			err = &recoveredPanic{value: p}
		}
	}()
	return c.users.FetchUsers(ctx, SampleSize)
}

// recoveredPanic carries a panic raised inside the store. Only panics with an
// error value have a usable description.
type recoveredPanic struct {
	value any
}

func (p *recoveredPanic) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (p *recoveredPanic) Unwrap() error {
	err, _ := p.value.(error)
	return err
}

func describe(err error) string {
	var p *recoveredPanic
	if errors.As(err, &p) {
		inner := p.Unwrap()
		if inner == nil {
			return UnknownError
		}
		err = inner
	}
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		return UnknownError
	}
	return msg
}
