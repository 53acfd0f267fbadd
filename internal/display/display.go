// Package display is the boundary to the small text screen on the knob panel.
package display

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Lines is the number of text rows on the panel.
const Lines = 4

// Display draws lines of text. Nothing is visible until Show is called.
type Display interface {
	Clear()
	Text(row int, s string)
	Show() error
}

// Frame is one screenful of text.
type Frame [Lines]string

func (f Frame) String() string {
	return strings.Join(f[:], "\n")
}

// buffer is the pending frame shared by the implementations below.
type buffer struct {
	pending Frame
}

func (b *buffer) Clear() {
	b.pending = Frame{}
}

// Text writes s on the given row. Rows outside the panel are ignored.
func (b *buffer) Text(row int, s string) {
	if row < 0 || row >= Lines {
		return
	}
	b.pending[row] = s
}

// Recorder keeps every shown frame. Used by tests.
type Recorder struct {
	buffer
	Frames []Frame
}

// Show records the pending frame.
func (r *Recorder) Show() error {
	r.Frames = append(r.Frames, r.pending)
	return nil
}

// Last returns the most recently shown frame.
func (r *Recorder) Last() Frame {
	if len(r.Frames) == 0 {
		return Frame{}
	}
	return r.Frames[len(r.Frames)-1]
}

// LogDisplay writes each shown frame to a logger, for running without a panel.
type LogDisplay struct {
	buffer
	log  logrus.FieldLogger
	last Frame
}

// NewLogDisplay creates a display that logs frames at info level.
func NewLogDisplay(log logrus.FieldLogger) *LogDisplay {
	return &LogDisplay{log: log}
}

// Show logs the pending frame if it differs from the last one shown.
func (d *LogDisplay) Show() error {
	if d.pending == d.last {
		return nil
	}
	d.last = d.pending
	for i, line := range d.pending {
		if line == "" {
			continue
		}
		d.log.WithField("row", i).Info(line)
	}
	return nil
}
