// Package viewer renders replicated scales in a terminal.
package viewer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/udisondev/scalekit/internal/replication"
	"github.com/udisondev/scalekit/internal/scale"
)

const (
	headerRows = 2
	idWidth    = 10
	kindWidth  = 8
	// cellWidth fits "reach 1.000 ████" style cells.
	cellWidth = 22
	labelLen  = 6
	barLen    = 8
	// barScale is the composed scale that fills a whole bar.
	barScale = 4
)

// Source is what the viewer draws and steps. *replication.Replica satisfies it.
type Source interface {
	Views() []replication.EntityView
	Tick()
	Steps() uint64
}

// Viewer draws one row per entity with one cell per scale category.
type Viewer struct {
	screen tcell.Screen
	src    Source
	paused bool

	mu     sync.Mutex
	status string
}

// New creates a viewer drawing src onto an initialized screen.
func New(screen tcell.Screen, src Source) *Viewer {
	return &Viewer{screen: screen, src: src}
}

// SetStatus replaces the text shown on the header's second line.
// Safe for concurrent use.
func (v *Viewer) SetStatus(s string) {
	v.mu.Lock()
	v.status = s
	v.mu.Unlock()
}

func (v *Viewer) statusLine() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Draw renders the current views interpolated delta of the way from the
// previous step to the current one.
func (v *Viewer) Draw(delta float32) {
	v.screen.Clear()
	w, h := v.screen.Size()
	views := v.src.Views()

	header := fmt.Sprintf("scalekit  entities: %d  step: %d", len(views), v.src.Steps())
	if v.paused {
		header += "  [paused]"
	}
	v.putText(0, 0, w, header, tcell.StyleDefault.Bold(true))
	v.putText(0, 1, w, v.statusLine(), tcell.StyleDefault.Foreground(tcell.ColorGray))

	for i, ev := range views {
		y := headerRows + i
		if y >= h {
			break
		}
		v.drawEntity(y, w, ev, delta)
	}
	v.screen.Show()
}

func (v *Viewer) drawEntity(y, w int, ev replication.EntityView, delta float32) {
	style := tcell.StyleDefault
	if ev.Kind == scale.KindPlayer {
		style = style.Foreground(tcell.ColorYellow)
	}

	v.putText(0, y, idWidth, fmt.Sprintf("%08x", ev.ObjectID), style)
	v.putText(idWidth+1, y, kindWidth, string(ev.Kind), style)

	x := idWidth + 1 + kindWidth + 1

	for _, sn := range ev.Scales {
		if x+cellWidth > w {
			break
		}
		v.drawCell(x, y, sn, delta)
		x += cellWidth
	}
}

func (v *Viewer) drawCell(x, y int, sn scale.Snapshot, delta float32) {
	value := sn.Lerp(delta)
	label := runewidth.Truncate(strings.TrimPrefix(sn.Category, "scale:"), labelLen, "…")
	label = runewidth.FillRight(label, labelLen)

	style := tcell.StyleDefault
	if sn.ScaleTicks > 0 {
		style = style.Foreground(tcell.ColorGreen)
	}
	x = v.putText(x, y, labelLen+1, label+" ", style)
	x = v.putText(x, y, 6, fmt.Sprintf("%5.3f", value), style)
	v.putText(x+1, y, barLen, Bar(value, barLen), style)
}

// Bar renders value as a horizontal bar of width cells, barScale filling it.
// Values past the end are marked with a trailing '+'.
func Bar(value float32, width int) string {
	if width <= 0 || math.IsNaN(float64(value)) || value <= 0 {
		return ""
	}
	filled := int(value / barScale * float32(width))
	if filled > width {
		return strings.Repeat("█", width-1) + "+"
	}
	return strings.Repeat("█", filled)
}

// putText writes s at (x, y) clipped to limit columns and returns the
// column after the last one written.
func (v *Viewer) putText(x, y, limit int, s string, style tcell.Style) int {
	end := x + limit
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > end {
			break
		}
		v.screen.SetContent(x, y, r, nil, style)
		x += rw
	}
	return x
}

// Run steps the source every interval and redraws at fps until ctx is
// canceled or the user quits with q or Esc. Space pauses stepping.
func (v *Viewer) Run(ctx context.Context, interval time.Duration, fps int) error {
	if fps <= 0 {
		fps = 30
	}
	events := make(chan tcell.Event, 16)
	go func() {
		defer close(events)
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	step := time.NewTicker(interval)
	defer step.Stop()
	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()

	lastStep := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return nil
				}
				if ev.Rune() == ' ' {
					v.paused = !v.paused
				}
			}

		case now := <-step.C:
			if !v.paused {
				v.src.Tick()
				lastStep = now
			}

		case now := <-frame.C:
			delta := float32(1)
			if !v.paused {
				delta = Progress(now.Sub(lastStep), interval)
			}
			v.Draw(delta)
		}
	}
}

// Progress is the fraction of interval covered by elapsed, clamped to [0, 1].
func Progress(elapsed, interval time.Duration) float32 {
	if interval <= 0 || elapsed >= interval {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float32(elapsed) / float32(interval)
}
