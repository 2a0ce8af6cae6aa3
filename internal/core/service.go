package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/parser"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	// MaxConcurrent bounds simultaneous import runs.
	MaxConcurrent int

	// MaxWait is how long a run waits for a free slot.
	MaxWait time.Duration

	// Parsers decodes uploaded files. Defaults to parser.NewRegistry().
	Parsers *parser.Registry

	// Registerer receives the import metrics. Nil disables registration.
	Registerer prometheus.Registerer
}

// Service runs region imports and answers history queries.
type Service struct {
	store   Store
	parsers *parser.Registry
	limiter *ImportLimiter
	metrics *metrics
}

// NewService wires a Service to store.
func NewService(store Store, opts Options) *Service {
	parsers := opts.Parsers
	if parsers == nil {
		parsers = parser.NewRegistry()
	}
	limiter := NewImportLimiter(opts.MaxConcurrent, opts.MaxWait)

	return &Service{
		store:   store,
		parsers: parsers,
		limiter: limiter,
		metrics: newMetrics(opts.Registerer, limiter),
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SupportedExtensions lists the file extensions ImportFile accepts.
func (s *Service) SupportedExtensions() []string {
	return s.parsers.Extensions()
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until active imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
