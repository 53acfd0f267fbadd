package app

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sweeney/eprom-ui/internal/browser"
	"github.com/sweeney/eprom-ui/internal/display"
	"github.com/sweeney/eprom-ui/internal/emulator"
	"github.com/sweeney/eprom-ui/internal/input"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	c    *Controller
	exp  *emulator.FakeExpander
	disp *display.Recorder
}

func setup(t *testing.T, capacity int) fixture {
	t.Helper()
	fsys := fstest.MapFS{
		"boot.bin":         {Data: []byte{0xDE, 0xAD}},
		"games/pacman.bin": {Data: []byte{0x01, 0x02, 0x03}},
		"notes.txt":        {Data: []byte("not an image")},
	}
	b, err := browser.New(fsys, "/sd")
	if err != nil {
		t.Fatalf("browser.New: %v", err)
	}
	exp := &emulator.FakeExpander{}
	emu, err := emulator.New(exp, capacity)
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	disp := &display.Recorder{}
	c := NewController(fsys, b, emu, disp, start)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return fixture{c: c, exp: exp, disp: disp}
}

func step(dir, pos int) input.Event {
	return input.Event{Time: start, Step: dir, Position: pos, Button: true}
}

func press() input.Event {
	return input.Event{Time: start, Fell: true}
}

func handle(t *testing.T, c *Controller, ev input.Event) []Event {
	t.Helper()
	events, err := c.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", ev, err)
	}
	return events
}

func TestStartRendersRoot(t *testing.T) {
	f := setup(t, 0)

	want := display.Frame{"> boot.bin", "  games/", "  notes.txt", ""}
	if f.disp.Last() != want {
		t.Errorf("expected %q, got %q", want, f.disp.Last())
	}
	if f.c.Mode() != ModeProgram {
		t.Errorf("expected PROGRAM mode, got %s", f.c.Mode())
	}
	if f.c.Directory() != "/sd" {
		t.Errorf("expected /sd, got %s", f.c.Directory())
	}
}

func TestIdleEventDoesNothing(t *testing.T) {
	f := setup(t, 0)
	frames := len(f.disp.Frames)

	events := handle(t, f.c, input.Event{Time: start, Button: true})
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if len(f.disp.Frames) != frames {
		t.Error("idle event should not redraw")
	}
}

func TestRotationMovesSelection(t *testing.T) {
	f := setup(t, 0)

	events := handle(t, f.c, step(1, 1))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventSelect {
		t.Errorf("expected SELECT, got %s", e.Type)
	}
	if e.Path != "games" {
		t.Errorf("expected path games, got %q", e.Path)
	}
	if e.Position != 1 {
		t.Errorf("expected position 1, got %d", e.Position)
	}
	if f.disp.Last()[1] != "> games/" {
		t.Errorf("expected games selected on screen, got %q", f.disp.Last())
	}

	events = handle(t, f.c, step(-1, 0))
	if len(events) != 1 || events[0].Path != "boot.bin" {
		t.Errorf("expected SELECT boot.bin, got %+v", events)
	}

	// Already at the top: counted, but nothing to publish.
	events = handle(t, f.c, step(-1, -1))
	if len(events) != 0 {
		t.Errorf("expected no events at top, got %+v", events)
	}

	counts := f.c.CountsSnapshot()
	if counts.StepsCW != 1 || counts.StepsCCW != 2 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestPressEntersDirectory(t *testing.T) {
	f := setup(t, 0)
	handle(t, f.c, step(1, 1))

	events := handle(t, f.c, press())
	if len(events) != 1 || events[0].Type != EventEnterDir {
		t.Fatalf("expected ENTER_DIR, got %+v", events)
	}
	if events[0].Path != "/sd/games" {
		t.Errorf("expected /sd/games, got %q", events[0].Path)
	}
	if f.disp.Last()[0] != "> .." {
		t.Errorf("expected parent entry selected, got %q", f.disp.Last())
	}
}

func TestPressOnNonImageIsIgnored(t *testing.T) {
	f := setup(t, 0)
	handle(t, f.c, step(1, 1))
	handle(t, f.c, step(1, 2))

	events := handle(t, f.c, press())
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
	if f.c.Mode() != ModeProgram {
		t.Errorf("expected PROGRAM mode, got %s", f.c.Mode())
	}
	if f.c.CountsSnapshot().Presses != 1 {
		t.Errorf("expected press counted")
	}
}

func TestPressLoadsImageAndTogglesMode(t *testing.T) {
	f := setup(t, 0)

	events := handle(t, f.c, press())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventEmulate || e.Mode != ModeICE || e.Path != "boot.bin" || e.Bytes != 2 {
		t.Errorf("unexpected event %+v", e)
	}
	if string(f.exp.Bytes()) != "\xDE\xAD" {
		t.Errorf("unexpected RAM contents %x", f.exp.Bytes())
	}
	if f.c.Mode() != ModeICE {
		t.Errorf("expected ICE mode, got %s", f.c.Mode())
	}
	want := display.Frame{"Emulating", "boot.bin", "", ""}
	if f.disp.Last() != want {
		t.Errorf("expected %q, got %q", want, f.disp.Last())
	}
	if f.c.Image() != "boot.bin" {
		t.Errorf("expected image boot.bin, got %q", f.c.Image())
	}

	// Rotation is ignored while emulating.
	writes := len(f.exp.Writes)
	if events := handle(t, f.c, step(1, 1)); len(events) != 0 {
		t.Errorf("rotation in ICE mode should be ignored, got %+v", events)
	}

	events = handle(t, f.c, press())
	if len(events) != 1 || events[0].Type != EventProgram || events[0].Mode != ModeProgram {
		t.Fatalf("expected PROGRAM event, got %+v", events)
	}
	if events[0].Path != "boot.bin" {
		t.Errorf("expected PROGRAM to name the image, got %q", events[0].Path)
	}
	if len(f.exp.Writes) == writes {
		t.Error("expected mode lines to be driven")
	}
	if f.disp.Last()[0] != "> boot.bin" {
		t.Errorf("expected listing restored, got %q", f.disp.Last())
	}

	counts := f.c.CountsSnapshot()
	if counts.Loads != 1 || counts.Presses != 2 || counts.StepsCW != 0 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestLoadFailureStaysInProgramMode(t *testing.T) {
	f := setup(t, 1) // boot.bin is two bytes

	_, err := f.c.Handle(context.Background(), press())
	if err == nil {
		t.Fatal("expected load error")
	}
	if !errors.Is(err, emulator.ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
	if f.c.Mode() != ModeProgram {
		t.Errorf("expected PROGRAM mode, got %s", f.c.Mode())
	}
	if f.disp.Last()[0] != "Load failed" {
		t.Errorf("expected failure message, got %q", f.disp.Last())
	}
	if f.c.LastLoadError() == "" {
		t.Error("expected load error recorded")
	}
	if f.c.CountsSnapshot().LoadErrors != 1 {
		t.Errorf("expected 1 load error, got %+v", f.c.CountsSnapshot())
	}

	handle(t, f.c, step(1, 1))
	if f.c.LastLoadError() != "" {
		t.Error("selection change should clear the load error")
	}
}

type brokenDisplay struct {
	display.Recorder
	err error
}

func (d *brokenDisplay) Show() error {
	if d.err != nil {
		return d.err
	}
	return d.Recorder.Show()
}

func TestLoadFailureReportsDisplayError(t *testing.T) {
	fsys := fstest.MapFS{"boot.bin": {Data: []byte{0xDE, 0xAD}}}
	b, err := browser.New(fsys, "/sd")
	if err != nil {
		t.Fatalf("browser.New: %v", err)
	}
	emu, err := emulator.New(&emulator.FakeExpander{}, 1)
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	disp := &brokenDisplay{}
	c := NewController(fsys, b, emu, disp, start)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	panelErr := errors.New("i2c nack")
	disp.err = panelErr
	_, err = c.Handle(context.Background(), press())
	if !errors.Is(err, emulator.ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
	if !errors.Is(err, panelErr) {
		t.Errorf("expected display error joined in, got %v", err)
	}
	if c.CountsSnapshot().LoadErrors != 1 {
		t.Errorf("expected 1 load error, got %+v", c.CountsSnapshot())
	}
}

func TestStepAndPressSamePoll(t *testing.T) {
	f := setup(t, 0)

	ev := step(1, 1)
	ev.Fell = true
	events := handle(t, f.c, ev)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].Type != EventSelect || events[1].Type != EventEnterDir {
		t.Errorf("expected SELECT then ENTER_DIR, got %s, %s", events[0].Type, events[1].Type)
	}
}

func TestEventIDsAreOrdered(t *testing.T) {
	f := setup(t, 0)

	ev := step(1, 1)
	ev.Fell = true
	events := handle(t, f.c, ev)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if len(events[0].ID) != 26 || len(events[1].ID) != 26 {
		t.Fatalf("expected ULIDs, got %q and %q", events[0].ID, events[1].ID)
	}
	// Same millisecond: monotonic entropy keeps them sortable.
	if events[0].ID >= events[1].ID {
		t.Errorf("expected increasing IDs, got %s then %s", events[0].ID, events[1].ID)
	}
}

func TestEventIDOutOfRangeTime(t *testing.T) {
	f := setup(t, 0)

	events := handle(t, f.c, input.Event{Step: 1, Position: 1, Button: true})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %+v", events)
	}
	if events[0].ID != "" {
		t.Errorf("expected empty ID for zero time, got %q", events[0].ID)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	f := setup(t, 0)
	interval := 15 * time.Minute

	if hb := f.c.CheckHeartbeat(start.Add(time.Minute), interval); hb != nil {
		t.Error("expected no heartbeat before interval")
	}
	if hb := f.c.CheckHeartbeat(start.Add(time.Hour), 0); hb != nil {
		t.Error("expected no heartbeat when disabled")
	}

	handle(t, f.c, press())
	hb := f.c.CheckHeartbeat(start.Add(interval), interval)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != interval {
		t.Errorf("expected uptime %v, got %v", interval, hb.Uptime)
	}
	if hb.Counts.Loads != 1 {
		t.Errorf("expected counts in heartbeat, got %+v", hb.Counts)
	}

	if hb := f.c.CheckHeartbeat(start.Add(interval+time.Minute), interval); hb != nil {
		t.Error("expected no heartbeat right after the last one")
	}
}
