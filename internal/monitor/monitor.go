package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// Config holds monitor loop configuration.
type Config struct {
	Interval           time.Duration // poll period
	SuggestionCooldown time.Duration // minimum gap between notifications
	IgnoreApps         []string      // identities that never trigger or update state
}

// Monitor polls the focus probe, detects transitions, and invokes the
// dispatcher's autonomous path when a target app gains focus and the
// cooldown gate is open. It is the sole writer of State.
type Monitor struct {
	config     Config
	state      *State
	registry   domain.ProviderResolver
	probe      domain.FocusProbe
	dispatcher domain.Dispatcher
	logger     *zap.Logger
	ignored    map[string]struct{}
	now        func() time.Time
}

// New creates a monitor.
func New(
	config Config,
	state *State,
	registry domain.ProviderResolver,
	probe domain.FocusProbe,
	dispatcher domain.Dispatcher,
	logger *zap.Logger,
) *Monitor {
	ignored := make(map[string]struct{}, len(config.IgnoreApps))
	for _, app := range config.IgnoreApps {
		ignored[app] = struct{}{}
	}
	return &Monitor{
		config:     config,
		state:      state,
		registry:   registry,
		probe:      probe,
		dispatcher: dispatcher,
		logger:     logger,
		ignored:    ignored,
		now:        time.Now,
	}
}

// Run starts the polling loop. This blocks until context is canceled.
// A tick and its dispatch run to completion before the next sleep, so a
// slow generation call delays the next poll rather than overlapping it.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor loop started",
		zap.Duration("interval", m.config.Interval),
		zap.Duration("cooldown", m.config.SuggestionCooldown))

	for {
		m.tick(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopping")
			return ctx.Err()
		case <-time.After(m.config.Interval):
		}
	}
}

// tick runs one poll iteration. Nothing in here may kill the loop: probe
// failures read as "unknown" and anything else is logged and swallowed.
func (m *Monitor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor tick panicked", zap.Any("panic", r))
		}
	}()

	currentApp := m.probe.ActiveAppName(ctx)

	if _, isIgnored := m.ignored[currentApp]; isIgnored {
		// A transient focus-steal by our own UI: leave previousApp and
		// lastValidApp alone so no false transition fires afterwards.
		return
	}

	if currentApp != "" {
		m.state.setLastValid(currentApp)
	}

	if currentApp != m.state.previous() {
		m.handleTransition(ctx, currentApp)
	}

	m.state.setPrevious(currentApp)
}

// handleTransition fires the autonomous path for a focus change into a
// target app, subject to the cooldown gate.
func (m *Monitor) handleTransition(ctx context.Context, currentApp string) {
	provider := m.registry.Resolve(currentApp)
	if provider == nil {
		return
	}

	// Recomputed fresh at decision time; never cached across calls.
	if !m.cooldownOpen() {
		m.logger.Debug("suggestion suppressed by cooldown",
			zap.String("app", currentApp))
		return
	}

	m.logger.Info("target app focused", zap.String("app", currentApp))
	m.dispatcher.Notify(ctx, provider, currentApp)
	m.state.markNotified(m.now())
}

// cooldownOpen reports whether enough time has passed since the last
// unsolicited notification. Opens immediately when none was ever sent.
func (m *Monitor) cooldownOpen() bool {
	last := m.state.lastNotifiedAt()
	if last.IsZero() {
		return true
	}
	return m.now().Sub(last) >= m.config.SuggestionCooldown
}
