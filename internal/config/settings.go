package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Theme is the colour record used by the display adapters. Colours are hex
// strings with or without a leading '#'.
type Theme struct {
	Function   string
	Derivative string
	Integral   string
	Background string
	Text       string
}

// DefaultTheme is the light palette of the desktop app: blue curve, red
// derivative, green integral on a pale blue background.
var DefaultTheme = Theme{
	Function:   "#1e88e5",
	Derivative: "#f44336",
	Integral:   "#4caf50",
	Background: "#f0f5ff",
	Text:       "#333333",
}

// Settings is the typed form of a funcan config file:
//
//	analysis:
//	  samples: 500
//	  max_samples: 100000
//	  function: "x**2 + 3*x + 5"
//	  min: -5
//	  max: 5
//	  operation: diff
//	quadrature:
//	  abs_tol: 1.49e-8
//	  rel_tol: 1.49e-8
//	  limit: 200
//	log:
//	  level: info
//	  format: text
//	server:
//	  addr: ":8080"
//	  read_timeout: 10s
//	  write_timeout: 30s
//	  max_body_bytes: 1048576
//	chart:
//	  width: 1024
//	  height: 640
//	theme:
//	  function: "#1e88e5"
type Settings struct {
	Samples          int
	MaxSamples       int
	DefaultFunction  string
	DefaultMin       float64
	DefaultMax       float64
	DefaultOperation string

	QuadAbsTol float64
	QuadRelTol float64
	QuadLimit  int

	LogLevel  string
	LogFormat string

	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int

	ChartWidth  int
	ChartHeight int
	Theme       Theme
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return FromConfig(New(nil))
}

// FromConfig builds Settings from c, filling every missing key with its
// default.
func FromConfig(c Config) Settings {
	a := c.Section("analysis")
	q := c.Section("quadrature")
	l := c.Section("log")
	srv := c.Section("server")
	ch := c.Section("chart")
	th := c.Section("theme")
	return Settings{
		Samples:          a.Int("samples", 500),
		MaxSamples:       a.Int("max_samples", 100000),
		DefaultFunction:  a.String("function", "x**2 + 3*x + 5"),
		DefaultMin:       a.Float("min", -5),
		DefaultMax:       a.Float("max", 5),
		DefaultOperation: a.String("operation", "diff"),

		QuadAbsTol: q.Float("abs_tol", 1.49e-8),
		QuadRelTol: q.Float("rel_tol", 1.49e-8),
		QuadLimit:  q.Int("limit", 200),

		LogLevel:  l.String("level", "info"),
		LogFormat: l.String("format", "text"),

		ServerAddr:   srv.String("addr", ":8080"),
		ReadTimeout:  srv.Duration("read_timeout", 10*time.Second),
		WriteTimeout: srv.Duration("write_timeout", 30*time.Second),
		MaxBodyBytes: srv.Int("max_body_bytes", 1<<20),

		ChartWidth:  ch.Int("width", 1024),
		ChartHeight: ch.Int("height", 640),
		Theme: Theme{
			Function:   th.String("function", DefaultTheme.Function),
			Derivative: th.String("derivative", DefaultTheme.Derivative),
			Integral:   th.String("integral", DefaultTheme.Integral),
			Background: th.String("background", DefaultTheme.Background),
			Text:       th.String("text", DefaultTheme.Text),
		},
	}
}

// Validate reports every out-of-range setting.
func (s Settings) Validate() error {
	var errs []error
	if s.Samples < 2 {
		errs = append(errs, fmt.Errorf("analysis.samples must be at least 2, got %d", s.Samples))
	}
	if s.MaxSamples < s.Samples {
		errs = append(errs, fmt.Errorf("analysis.max_samples (%d) must be at least analysis.samples (%d)", s.MaxSamples, s.Samples))
	}
	if s.DefaultMax <= s.DefaultMin {
		errs = append(errs, fmt.Errorf("analysis.max (%g) must exceed analysis.min (%g)", s.DefaultMax, s.DefaultMin))
	}
	if s.QuadAbsTol <= 0 && s.QuadRelTol <= 0 {
		errs = append(errs, errors.New("quadrature needs a positive abs_tol or rel_tol"))
	}
	if s.QuadLimit < 1 {
		errs = append(errs, fmt.Errorf("quadrature.limit must be positive, got %d", s.QuadLimit))
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", s.LogFormat))
	}
	if s.ChartWidth <= 0 || s.ChartHeight <= 0 {
		errs = append(errs, fmt.Errorf("chart size must be positive, got %dx%d", s.ChartWidth, s.ChartHeight))
	}
	return errors.Join(errs...)
}
