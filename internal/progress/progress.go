// Package progress renders roadmap generation without the full-screen UI:
// a spinner line on terminals and one line per phase in CI or plain mode.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/roadmap"
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// Indicator follows a generation stream. It implements stream.Handler, so it
// can be attached to a session with stream.WithHandler.
type Indicator struct {
	writer      io.Writer
	roadmap     *roadmap.Reducer
	startTime   time.Time
	mu          sync.Mutex
	progress    float64
	phase       string
	events      int
	showSpinner bool
	spinnerIdx  int
	stopChan    chan struct{}
	doneChan    chan struct{}
	started     atomic.Bool
	stopOnce    sync.Once
	isCI        bool
}

// Config holds configuration for progress indicator
type Config struct {
	Writer      io.Writer
	ShowSpinner bool
	IsCI        bool // Set to true in CI/CD environments to disable fancy output

	// Roadmap, when set, supplies the month/week/day counts shown next to
	// the bar and in the summary.
	Roadmap *roadmap.Reducer
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var phaseLabels = map[stream.EventType]string{
	stream.EventStart:               "Starting",
	stream.EventAnalyzingGoals:      "Analyzing goals",
	stream.EventGoalsAnalyzed:       "Goals analyzed",
	stream.EventTitleReady:          "Title ready",
	stream.EventGeneratingMonthly:   "Planning months",
	stream.EventMonthlyGenerated:    "Month planned",
	stream.EventMonthReady:          "Month planned",
	stream.EventGeneratingWeekly:    "Planning weeks",
	stream.EventWeeklyGenerated:     "Weeks planned",
	stream.EventWeeksReady:          "Weeks planned",
	stream.EventGeneratingDaily:     "Planning days",
	stream.EventDailyGenerated:      "Days planned",
	stream.EventComplete:            "Complete",
	stream.EventError:               "Failed",
	stream.EventQuestionsGenerating: "Preparing questions",
	stream.EventQuestion:            "Question received",
	stream.EventQuestionsReady:      "Questions ready",
	stream.EventEvaluating:          "Evaluating answers",
	stream.EventEvaluation:          "Evaluation ready",
	stream.EventFollowup:            "Follow-up round",
	stream.EventInterviewComplete:   "Interview complete",
}

// PhaseLabel returns the display label of an event type.
func PhaseLabel(t stream.EventType) string {
	if l, ok := phaseLabels[t]; ok {
		return l
	}
	return string(t)
}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	// Auto-detect CI environment
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:      cfg.Writer,
		roadmap:     cfg.Roadmap,
		startTime:   time.Now(),
		showSpinner: cfg.ShowSpinner && !cfg.IsCI,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		isCI:        cfg.IsCI,
	}
}

// Start begins the spinner display
func (p *Indicator) Start() {
	if p.showSpinner && p.started.CompareAndSwap(false, true) {
		go p.spinnerLoop()
	}
}

// Stop stops the spinner and clears its line
func (p *Indicator) Stop() {
	p.stopOnce.Do(func() {
		if p.showSpinner {
			close(p.stopChan)
			if p.started.Load() {
				<-p.doneChan
			}
			p.mu.Lock()
			fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", 100))
			p.mu.Unlock()
		}
	})
}

// HandleEvent implements stream.Handler.
func (p *Indicator) HandleEvent(ev stream.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events++
	if ev.Progress != nil {
		p.progress = *ev.Progress
	}
	if ev.Type == stream.EventComplete {
		p.progress = 100
	}
	p.phase = PhaseLabel(ev.Type)
	if ev.Message != "" && ev.Type != stream.EventError {
		p.phase = ev.Message
	}

	// In CI mode, print status updates immediately
	if !p.showSpinner {
		p.printEvent(ev)
	}
}

// Reset implements stream.Handler.
func (p *Indicator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = 0
	p.phase = ""
	p.events = 0
	p.startTime = time.Now()
}

// Progress returns the last reported percentage.
func (p *Indicator) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// printEvent prints one event in CI-friendly format. Repeated per-item
// events are folded into their phase line.
func (p *Indicator) printEvent(ev stream.Event) {
	symbol := "▶"
	switch ev.Type {
	case stream.EventComplete:
		symbol = "✓"
	case stream.EventError:
		symbol = "✗"
	case stream.EventMonthlyGenerated, stream.EventMonthReady,
		stream.EventWeeklyGenerated, stream.EventWeeksReady,
		stream.EventDailyGenerated, stream.EventQuestion:
		return
	}

	msg := fmt.Sprintf("%s %s", symbol, PhaseLabel(ev.Type))
	if ev.Progress != nil {
		msg += fmt.Sprintf(" [%.0f%%]", *ev.Progress)
	}
	if ev.Type == stream.EventError {
		if m := ev.ErrorMessage(); m != "" {
			msg += " - " + m
		}
	} else if ev.Message != "" {
		msg += " - " + ev.Message
	}
	fmt.Fprintln(p.writer, msg)
}

// spinnerLoop runs the spinner animation
func (p *Indicator) spinnerLoop() {
	defer close(p.doneChan)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.renderProgress()
			p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
			p.mu.Unlock()
		}
	}
}

// renderProgress draws the status line. Callers hold mu.
func (p *Indicator) renderProgress() {
	fraction := p.progress / 100
	elapsed := time.Since(p.startTime)

	var eta string
	if fraction > 0 && fraction < 1.0 {
		totalEstimated := time.Duration(float64(elapsed) / fraction)
		eta = fmt.Sprintf(" | ETA: %s", formatDuration(totalEstimated-elapsed))
	}

	var counts string
	if p.roadmap != nil {
		m, w, d := p.roadmap.Snapshot().Counts()
		counts = fmt.Sprintf(" | %dm %dw %dd", m, w, d)
	}

	phase := p.phase
	if phase == "" {
		phase = "Connecting"
	}

	fmt.Fprintf(p.writer, "\r%s [%s] %5.1f%% | %s%s | %s%s",
		spinnerFrames[p.spinnerIdx],
		bar(fraction, 30),
		p.progress,
		phase,
		counts,
		formatDuration(elapsed),
		eta,
	)
}

// PrintSummary prints the outcome of a finished generation.
func (p *Indicator) PrintSummary(snap stream.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(p.writer, "Generation Summary")
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")

	if p.roadmap != nil {
		partial := p.roadmap.Snapshot()
		m, w, d := partial.Counts()
		if partial.Title != "" {
			fmt.Fprintf(p.writer, "Title:           %s\n", partial.Title)
		}
		fmt.Fprintf(p.writer, "Months:          %d\n", m)
		fmt.Fprintf(p.writer, "Weeks:           %d\n", w)
		fmt.Fprintf(p.writer, "Days:            %d\n", d)
	}
	fmt.Fprintf(p.writer, "Status:          %s\n", snap.Status)
	fmt.Fprintf(p.writer, "Events:          %d\n", len(snap.Events))
	if snap.Dropped > 0 {
		fmt.Fprintf(p.writer, "Dropped frames:  %d\n", snap.Dropped)
	}
	fmt.Fprintf(p.writer, "Total Time:      %s\n", formatDuration(time.Since(p.startTime)))
	if snap.Error != "" {
		fmt.Fprintf(p.writer, "Error:           %s\n", snap.Error)
	}
	if id := snap.Result.RoadmapID(); id != "" {
		fmt.Fprintf(p.writer, "Roadmap:         %s\n", id)
	}
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
}

func bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(float64(width) * fraction)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// StreamWriter wraps an io.Writer to stream output with prefixes
type StreamWriter struct {
	writer io.Writer
	prefix string
	buffer []byte
	mu     sync.Mutex
}

// NewStreamWriter creates a new stream writer with a prefix
func NewStreamWriter(w io.Writer, prefix string) *StreamWriter {
	return &StreamWriter{
		writer: w,
		prefix: prefix,
		buffer: make([]byte, 0, 4096),
	}
}

// Write implements io.Writer
func (sw *StreamWriter) Write(p []byte) (n int, err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n = len(p)
	sw.buffer = append(sw.buffer, p...)

	for {
		idx := strings.IndexByte(string(sw.buffer), '\n')
		if idx == -1 {
			break
		}

		line := sw.buffer[:idx]
		sw.buffer = sw.buffer[idx+1:]

		_, err = fmt.Fprintf(sw.writer, "%s %s\n", sw.prefix, string(line))
		if err != nil {
			return
		}
	}

	return
}

// Flush writes any remaining buffered content
func (sw *StreamWriter) Flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if len(sw.buffer) > 0 {
		_, err := fmt.Fprintf(sw.writer, "%s %s\n", sw.prefix, string(sw.buffer))
		sw.buffer = sw.buffer[:0]
		return err
	}
	return nil
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// BarIndicator is a static bar used for quiz results.
type BarIndicator struct {
	writer    io.Writer
	total     int
	completed int
	failed    int
	startTime time.Time
	mu        sync.Mutex
}

// NewBarIndicator creates a simple progress bar
func NewBarIndicator(w io.Writer, total int) *BarIndicator {
	if w == nil {
		w = os.Stdout
	}
	return &BarIndicator{
		writer:    w,
		total:     total,
		startTime: time.Now(),
	}
}

// Increment counts one correct or incorrect item and redraws the bar
func (b *BarIndicator) Increment(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.completed++
	} else {
		b.failed++
	}

	b.render()
}

func (b *BarIndicator) render() {
	fraction := 0.0
	if b.total > 0 {
		fraction = float64(b.completed+b.failed) / float64(b.total)
	}

	fmt.Fprintf(b.writer, "\r[%s] %.0f%% | %d/%d | ✓ %d | ✗ %d",
		bar(fraction, 40),
		fraction*100,
		b.completed+b.failed,
		b.total,
		b.completed,
		b.failed,
	)
}

// Finish completes the progress bar
func (b *BarIndicator) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	fmt.Fprintln(b.writer)
}
