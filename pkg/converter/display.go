package converter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tinyscreen/tinytv/internal/ffmpeg"
)

const progressBarWidth = 50

// progressPrinter renders an inline progress bar from encoder events.
// It is purely advisory display: updates are throttled and an unlucky
// write never propagates back to the encode.
type progressPrinter struct {
	w     io.Writer
	total time.Duration

	mu         sync.Mutex
	lastRender time.Time
}

func newProgressPrinter(w io.Writer, total time.Duration) *progressPrinter {
	return &progressPrinter{w: w, total: total}
}

func (p *progressPrinter) Progress(ev ffmpeg.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.lastRender) < 500*time.Millisecond {
		return
	}
	p.lastRender = time.Now()
	p.render(ev.Elapsed)
}

// finish draws the bar at 100% and terminates the line.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render(p.total)
	fmt.Fprintln(p.w)
}

func (p *progressPrinter) render(elapsed time.Duration) {
	percent := 0.0
	if p.total > 0 {
		percent = float64(elapsed) / float64(p.total) * 100
		if percent > 100 {
			percent = 100
		}
	}
	filled := int(progressBarWidth * percent / 100)
	bar := strings.Repeat("=", filled) + strings.Repeat("-", progressBarWidth-filled)
	fmt.Fprintf(p.w, "\r  [%s] %6.2f%% (%s / %s)",
		bar, percent, clockFormat(elapsed), clockFormat(p.total))
}

func clockFormat(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
