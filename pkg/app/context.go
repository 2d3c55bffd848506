package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool
	NoColor      bool

	// DefaultTimeout bounds one snapshot load. Zero disables it.
	DefaultTimeout time.Duration

	// Logger receives structured diagnostics. Its level follows Verbose/Quiet.
	Logger *logrus.Logger

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context
func NewContext() *Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Context{
		Context:        context.Background(),
		DefaultTimeout: 30 * time.Second,
		Logger:         logger,
	}
}

// ApplyVerbosity sets the logger level from the Verbose and Quiet flags.
// An explicit level name, if valid, wins over both.
func (c *Context) ApplyVerbosity(level string) {
	switch {
	case level != "":
		if lvl, err := logrus.ParseLevel(level); err == nil {
			c.Logger.SetLevel(lvl)
			return
		}
		c.Logger.Warnf("ignoring unknown log level %q", level)
		fallthrough
	default:
		switch {
		case c.Quiet:
			c.Logger.SetLevel(logrus.ErrorLevel)
		case c.Verbose:
			c.Logger.SetLevel(logrus.DebugLevel)
		default:
			c.Logger.SetLevel(logrus.InfoLevel)
		}
	}
}

// SetLogOutput redirects log output, e.g. to a file while a TUI owns the
// terminal.
func (c *Context) SetLogOutput(w io.Writer) {
	c.Logger.SetOutput(w)
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a debug message
func (c *Context) Log(message string) {
	c.Logger.Debug(message)
}
