// Package progress animates liveness while the main execution path blocks
// on a remote call or a job poll loop.
//
// The indicator writes to stderr so result text on stdout stays clean, and
// it is suppressed entirely when stderr is not a terminal or the selected
// output format is machine-oriented. Stop clears the spinner line before
// returning, so callers can render results immediately afterwards without
// interleaving.
package progress

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// interval is the spinner animation period.
const interval = 100 * time.Millisecond

// Indicator wraps one spinner lifecycle. The zero-value-like disabled
// indicator is valid and all methods are no-ops on it.
type Indicator struct {
	s       *spinner.Spinner
	enabled bool
}

// New creates an indicator. It animates only when enabled is true and
// stderr is an interactive terminal.
func New(enabled bool) *Indicator {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return &Indicator{}
	}
	s := spinner.New(spinner.CharSets[14], interval, spinner.WithWriter(os.Stderr))
	return &Indicator{s: s, enabled: true}
}

// Start begins animating with the given label.
func (p *Indicator) Start(label string) {
	if !p.enabled {
		return
	}
	p.s.Suffix = " " + label
	p.s.Start()
}

// Update changes the label while the spinner keeps running.
func (p *Indicator) Update(label string) {
	if !p.enabled {
		return
	}
	p.s.Suffix = " " + label
}

// Stop halts the animation and clears the spinner's trailing characters.
// Spinner.Stop blocks until the render goroutine has erased the line, which
// gives the ordering barrier the formatter relies on.
func (p *Indicator) Stop() {
	if !p.enabled {
		return
	}
	p.s.Stop()
}
