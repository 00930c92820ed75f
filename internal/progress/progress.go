// Package progress shows spinners and bars for long-running phases.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar.
type Tracker struct {
	bar     *progressbar.ProgressBar
	label   string
	w       io.Writer
	visible bool
}

// Option configures a Tracker.
type Option func(*config)

type config struct {
	w       io.Writer
	visible bool
}

// WithWriter sends progress output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithVisibility hides the bar and its finish messages when visible is
// false.
func WithVisibility(visible bool) Option {
	return func(c *config) {
		c.visible = visible
	}
}

func newConfig(opts []Option) config {
	c := config{w: os.Stderr, visible: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) barWriter() io.Writer {
	if !c.visible {
		return io.Discard
	}
	return c.w
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string, opts ...Option) *Tracker {
	c := newConfig(opts)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(c.barWriter()),
		progressbar.OptionSetVisibility(c.visible),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, w: c.w, visible: c.visible}
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(label string, total int, opts ...Option) *Tracker {
	c := newConfig(opts)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.barWriter()),
		progressbar.OptionSetVisibility(c.visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, w: c.w, visible: c.visible}
}

// Describe replaces the label shown next to the bar.
func (t *Tracker) Describe(label string) {
	t.label = label
	t.bar.Describe(label)
}

// Label returns the current label.
func (t *Tracker) Label() string {
	return t.label
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (t *Tracker) FinishSkipped(reason string) {
	t.bar.Finish()
	t.bar.Clear()
	if t.visible {
		fmt.Fprintf(t.w, "  %s skipped (%s)\n", t.label, reason)
	}
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.bar.Finish()
	t.bar.Clear()
	if t.visible {
		fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
	}
}
