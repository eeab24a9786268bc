package app

import "context"

// Context holds application-wide configuration and state. It carries a
// plain context.Context for call-site consistency with the rest of the
// pack, but this tool runs every operation synchronously to completion
// (spec.md's concurrency model has no cancellation or timeout semantics),
// so it is never derived with WithCancel/WithTimeout.
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context
func NewContext() *Context {
	return &Context{Context: context.Background()}
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

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		println(message)
	}
}
