package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// ProgressDisplay orchestrates the display of progress indicators
type ProgressDisplay struct {
	capabilities TerminalCapabilities
	symbols      ProgressSymbols

	mu           sync.Mutex
	currentStage *StageInfo
	spinner      *spinner.Spinner
	lastPercent  int
}

// NewProgressDisplay creates a new progress display with the given terminal capabilities
func NewProgressDisplay(caps TerminalCapabilities) *ProgressDisplay {
	return &ProgressDisplay{
		capabilities: caps,
		symbols:      SelectSymbols(caps),
	}
}

// StartStage begins displaying progress for a stage
func (p *ProgressDisplay) StartStage(stage StageInfo) error {
	if err := stage.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentStage = &stage
	p.lastPercent = -1

	msg := buildStageMessage(stage, "Running")

	if p.capabilities.IsTTY {
		// TTY mode: Start spinner animation
		p.stopLocked()
		p.spinner = spinner.New(
			spinner.CharSets[p.symbols.SpinnerSet],
			100*time.Millisecond,
		)
		p.spinner.Writer = os.Stderr // Keep stdout clean for scripted use
		p.spinner.Suffix = " " + msg
		p.spinner.Start()
	} else {
		// Non-interactive mode: Just print the message
		fmt.Println(msg)
	}

	return nil
}

// UpdateBytes refreshes the running stage's message with a byte counter.
// Only whole-percent changes repaint, so callers may invoke it per chunk.
func (p *ProgressDisplay) UpdateBytes(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spinner == nil || p.currentStage == nil {
		return
	}

	pct := -1
	if total > 0 {
		pct = int(float64(current) / float64(total) * 100)
	}
	if pct == p.lastPercent && pct >= 0 {
		return
	}
	p.lastPercent = pct

	msg := buildStageMessage(*p.currentStage, "Running")
	p.spinner.Suffix = " " + msg + " " + formatByteProgress(current, total)
}

// ByteFunc returns a callback suitable for downloaders and extractors that
// report (current, total) byte counts.
func (p *ProgressDisplay) ByteFunc() func(current, total int64) {
	return p.UpdateBytes
}

// CompleteStage stops the spinner and displays completion status
func (p *ProgressDisplay) CompleteStage(stage StageInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	mark := checkmark(p.symbols, p.capabilities.SupportsColor)
	counter := formatStageCounter(stage.Number, stage.TotalStages)
	fmt.Printf("%s %s %s\n", mark, counter, capitalize(stage.Name))

	p.currentStage = nil
	return nil
}

// FailStage stops the spinner and displays failure status
func (p *ProgressDisplay) FailStage(stage StageInfo, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	mark := failureMark(p.symbols, p.capabilities.SupportsColor)
	counter := formatStageCounter(stage.Number, stage.TotalStages)
	fmt.Printf("%s %s %s failed: %v\n", mark, counter, capitalize(stage.Name), err)

	p.currentStage = nil
	return nil
}

// StopSpinner stops the spinner without showing completion/failure.
// Useful before printing interactive output mid-run.
func (p *ProgressDisplay) StopSpinner() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *ProgressDisplay) stopLocked() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}
