// Package progressbar prints a progress bar for long-running episode
// loops to the terminal window.
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar tracks the progress of some repeated computation and
// renders it as a bar of fixed width. Increment should be called once
// per completed iteration and Display whenever the bar should be
// redrawn. ProgressBar does not use concurrency.
type ProgressBar struct {
	width     float64
	max       float64
	progress  float64
	bar       strings.Builder
	startTime time.Time
}

// New returns a new ProgressBar that is width characters wide and
// reaches 100% after max calls to Increment.
func New(width, max int) *ProgressBar {
	return &ProgressBar{
		width:     float64(width),
		max:       float64(max),
		startTime: time.Now(),
	}
}

// Increment increments the internal progress counter
func (p *ProgressBar) Increment() {
	if p.progress < p.max {
		p.progress++
	}
}

// Display redraws the progress bar on the current terminal line
func (p *ProgressBar) Display() {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := p.progress / p.max * p.width
	for i := 0.0; i < filled; i++ {
		p.bar.WriteString("█")
	}
	for i := filled; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	fmt.Fprintf(&p.bar, "| [%.2f%% | elapsed: %v]",
		p.progress/p.max*100, time.Since(p.startTime).Truncate(time.Second))

	fmt.Printf("\n\033[1A\033[K%v", p.bar.String())
}

// Close finishes the progress bar, moving the cursor to a new line
func (p *ProgressBar) Close() {
	fmt.Println()
}
