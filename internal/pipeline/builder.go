package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"vidpulse/internal/logger"
)

// Builder helps construct a fully configured Runner
type Builder struct {
	users    UserSource
	flags    FlagStore
	analyzer Analyzer
	mailer   Mailer
	notifier Notifier
	config   *Config
	log      *zerolog.Logger
}

// NewBuilder creates a new runner builder with default settings
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithStore sets both the user source and the flag store
func (b *Builder) WithStore(store Store) *Builder {
	b.users = store
	b.flags = store
	return b
}

// WithUserSource sets the user source
func (b *Builder) WithUserSource(users UserSource) *Builder {
	b.users = users
	return b
}

// WithFlagStore sets the flag store
func (b *Builder) WithFlagStore(flags FlagStore) *Builder {
	b.flags = flags
	return b
}

// WithAnalyzer sets the analysis client
func (b *Builder) WithAnalyzer(analyzer Analyzer) *Builder {
	b.analyzer = analyzer
	return b
}

// WithMailer sets the email transport
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithNotifier sets the end-of-tick notifier
func (b *Builder) WithNotifier(notifier Notifier) *Builder {
	b.notifier = notifier
	return b
}

// WithConfig sets the runner configuration
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// WithLogger overrides the package logger
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = &log
	return b
}

// DryRun disables analysis calls, sends and flag writes
func (b *Builder) DryRun() *Builder {
	if b.config == nil {
		b.config = DefaultConfig()
	}
	b.config.DryRun = true
	return b
}

// Build constructs a fully configured Runner
func (b *Builder) Build() (*Runner, error) {
	if b.config == nil {
		b.config = DefaultConfig()
	}

	// Validate required components
	if b.users == nil {
		return nil, fmt.Errorf("user source is required")
	}
	if !b.config.DryRun {
		if b.flags == nil {
			return nil, fmt.Errorf("flag store is required")
		}
		if b.analyzer == nil {
			return nil, fmt.Errorf("analyzer is required")
		}
		if b.mailer == nil {
			return nil, fmt.Errorf("mailer is required")
		}
	}
	if b.config.Sender.Email == "" && !b.config.DryRun {
		return nil, fmt.Errorf("sender email is required")
	}

	log := logger.Get()
	if b.log != nil {
		log = *b.log
	}

	limit := rate.Inf
	if b.config.RatePerSecond > 0 {
		limit = rate.Limit(b.config.RatePerSecond)
	}

	return &Runner{
		users:    b.users,
		flags:    b.flags,
		analyzer: b.analyzer,
		mailer:   b.mailer,
		notifier: b.notifier,
		config:   b.config,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log.With().Str("component", "tick").Logger(),
	}, nil
}
