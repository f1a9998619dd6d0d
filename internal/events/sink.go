package events

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Sink receives structured presentation events. The engine and scheduler
// talk only to this interface; rendering stays out of the core.
type Sink interface {
	Info(msg string)
	Success(msg string)
	Warn(msg string)
	Error(msg string)
	Section(title string)
	// Countdown reports the remaining time until the next pass. It is
	// called on every wait poll, so implementations should render in place.
	Countdown(remaining time.Duration)
}

// Console renders events with colorized prefixes.
type Console struct {
	Out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{Out: out}
}

func (c *Console) Info(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", text.FgCyan.Sprint("•"), msg)
}

func (c *Console) Success(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", text.FgGreen.Sprint("✓"), msg)
}

func (c *Console) Warn(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", text.FgYellow.Sprint("!"), msg)
}

func (c *Console) Error(msg string) {
	fmt.Fprintf(c.Out, "%s %s\n", text.FgRed.Sprint("✗"), msg)
}

func (c *Console) Section(title string) {
	fmt.Fprintf(c.Out, "\n%s\n", text.Bold.Sprint("── "+title))
}

func (c *Console) Countdown(remaining time.Duration) {
	fmt.Fprintf(c.Out, "\r%s next pass in %s   ", text.FgCyan.Sprint("⏳"), remaining.Round(time.Second))
}

type discard struct{}

// Discard returns a sink that drops all events. Useful for tests.
func Discard() Sink { return discard{} }

func (discard) Info(string)             {}
func (discard) Success(string)          {}
func (discard) Warn(string)             {}
func (discard) Error(string)            {}
func (discard) Section(string)          {}
func (discard) Countdown(time.Duration) {}
