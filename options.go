package domshield

import (
	"github.com/kvasov/domshield/common/clock"
	"github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/services/syncer"
)

// Option configures an Engine beyond what AppConfig carries.
type Option func(*builder)

type builder struct {
	clk      clock.Clock
	logger   log.Logger
	fetcher  syncer.FeedFetcher
	progress func(domain.ProgressEvent)
}

// WithClock injects a clock; tests use a mock to drive TTL and staleness.
func WithClock(c clock.Clock) Option {
	return func(b *builder) { b.clk = c }
}

// WithLogger injects a logger instead of the configured global.
func WithLogger(l log.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// WithFetcher replaces the HTTP feed gateway.
func WithFetcher(f syncer.FeedFetcher) Option {
	return func(b *builder) { b.fetcher = f }
}

// WithProgress registers the sync progress sink.
func WithProgress(fn func(domain.ProgressEvent)) Option {
	return func(b *builder) { b.progress = fn }
}
