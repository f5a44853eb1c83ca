package agent

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/browsertestoor/pkg/config"
)

// Manager owns the shared default caller and hands out independent
// per-test callers for provider overrides.
type Manager interface {
	// Default returns the shared caller built from the application
	// config. The manager retains ownership.
	Default() Caller

	// DefaultConfig returns a fresh copy of the default per-call
	// settings for callers to merge overrides onto.
	DefaultConfig() CallConfig

	// ForProvider constructs an independent caller for a provider
	// override. The manager tracks it and closes it on Close.
	ForProvider(provider Provider) (Caller, error)

	// Close releases every caller the manager handed out. It is safe
	// to call more than once.
	Close() error
}

type manager struct {
	log      logrus.FieldLogger
	opts     Options
	defaults CallConfig

	def Caller

	mu     sync.Mutex
	extras []Caller
	closed bool
}

var _ Manager = (*manager)(nil)

// NewManager builds the default caller from the application config.
// An unknown default provider is an immediate error rather than a
// per-test surprise.
func NewManager(log logrus.FieldLogger, cfg *config.AgentConfig) (Manager, error) {
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolving default provider: %w", err)
	}

	opts := Options{
		Endpoint:     cfg.Endpoint,
		DefaultModel: cfg.Model,
	}

	def, err := New(provider, log, opts)
	if err != nil {
		return nil, err
	}

	return &manager{
		log:  log.WithField("component", "agent_manager"),
		opts: opts,
		defaults: CallConfig{
			Provider:    provider,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			UseVision:   cfg.UseVision,
			MaxSteps:    cfg.MaxSteps,
		},
		def: def,
	}, nil
}

func (m *manager) Default() Caller {
	return m.def
}

func (m *manager) DefaultConfig() CallConfig {
	return m.defaults
}

func (m *manager) ForProvider(provider Provider) (Caller, error) {
	c, err := New(provider, m.log, m.opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		_ = c.Close()

		return nil, fmt.Errorf("manager is closed")
	}

	m.extras = append(m.extras, c)

	return c, nil
}

// Close releases the default caller and every override caller. Safe
// to call repeatedly; later calls are no-ops.
func (m *manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	var firstErr error

	if err := m.def.Close(); err != nil {
		firstErr = err
	}

	for _, c := range m.extras {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.extras = nil

	return firstErr
}
