package tui

import "go.uber.org/zap"

// Theme captures optional prefixes the session applies to messages it prints
// through the driver.
type Theme struct {
	HeadingPrefix string
	ErrorPrefix   string
}

// DefaultTheme is used unless WithTheme overrides it.
var DefaultTheme = Theme{HeadingPrefix: "== ", ErrorPrefix: "  ! "}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithLogger routes session logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often one field may be re-prompted. Zero keeps
// prompting until the answer is valid.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxAttempts = n
		}
	}
}

// WithPageSize sets how many options select prompts show at once.
func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}
