package download

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/ui"
)

const progressRenderInterval = 200 * time.Millisecond

type jobProgress struct {
	total      int64
	written    int64
	start      time.Time
	lastRender time.Time
}

// ConsoleReporter draws a progress bar per job. With more than one worker
// live bars would interleave, so only completion lines are printed.
type ConsoleReporter struct {
	live bool
	now  func() time.Time

	mu   sync.Mutex
	jobs map[string]*jobProgress
}

// NewConsoleReporter returns a reporter; live enables the redrawn bar.
func NewConsoleReporter(live bool) *ConsoleReporter {
	return &ConsoleReporter{live: live, now: time.Now, jobs: make(map[string]*jobProgress)}
}

func (r *ConsoleReporter) Start(job Job, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.jobs[job.Key()] = &jobProgress{total: total, start: now}
	if !r.live {
		ui.PrintDownload(job.Label() + " " + ui.FormatIndicator(job.Format))
	}
}

func (r *ConsoleReporter) Advance(job Job, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.jobs[job.Key()]
	if !ok {
		return
	}
	p.written += int64(n)
	if !r.live {
		return
	}
	now := r.now()
	if now.Sub(p.lastRender) < progressRenderInterval && (p.total <= 0 || p.written < p.total) {
		return
	}
	p.lastRender = now
	r.render(job, p, now)
}

func (r *ConsoleReporter) Finish(job Job, written int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.jobs[job.Key()]
	if !ok {
		return
	}
	delete(r.jobs, job.Key())
	if r.live {
		p.written = written
		r.render(job, p, r.now())
		ui.EndProgress()
	}
}

func (r *ConsoleReporter) render(job Job, p *jobProgress, now time.Time) {
	percent := 0
	totalStr := model.UnknownSizeLabelLower
	if p.total > 0 {
		percent = int(p.written * model.MaxProgressPercent / p.total)
		totalStr = humanize.Bytes(uint64(p.total))
	}
	var speed uint64
	if elapsed := now.Sub(p.start); elapsed > 0 {
		speed = uint64(float64(p.written) / elapsed.Seconds())
	}
	ui.RenderProgress(ui.Truncate(job.Label(), 32), percent,
		humanize.Bytes(speed), humanize.Bytes(uint64(p.written)), totalStr, ui.ColorGreen)
}

// Snapshot returns the bytes written so far for an active job.
func (r *ConsoleReporter) Snapshot(job Job) (written, total int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.jobs[job.Key()]
	if !ok {
		return 0, 0, false
	}
	return p.written, p.total, true
}
