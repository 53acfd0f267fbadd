package internal

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sweeney/eprom-ui/internal/app"
	"github.com/sweeney/eprom-ui/internal/browser"
	"github.com/sweeney/eprom-ui/internal/display"
	"github.com/sweeney/eprom-ui/internal/emulator"
	"github.com/sweeney/eprom-ui/internal/gpio"
	"github.com/sweeney/eprom-ui/internal/input"
	"github.com/sweeney/eprom-ui/internal/mqtt"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func lv(button, a, b bool) gpio.Levels {
	return gpio.Levels{Button: button, A: a, B: b}
}

type rig struct {
	reader    *gpio.FakeReader
	poller    *input.Poller
	ctrl      *app.Controller
	exp       *emulator.FakeExpander
	disp      *display.Recorder
	publisher *mqtt.FakePublisher
}

// newRig wires the real decoders, browser, controller and emulator sequencing
// to fake pins, a fake latch and a fake broker. Polls are 1ms apart.
func newRig(t *testing.T, card fstest.MapFS, samples []gpio.Levels) *rig {
	t.Helper()
	r := &rig{
		reader:    gpio.NewFakeReader(samples),
		exp:       &emulator.FakeExpander{},
		disp:      &display.Recorder{},
		publisher: mqtt.NewFakePublisher(),
	}

	n := 0
	clock := func() time.Time {
		now := start.Add(time.Duration(n) * time.Millisecond)
		n++
		return now
	}

	var err error
	r.poller, err = input.NewPoller(r.reader, 5*time.Millisecond, clock)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	b, err := browser.New(card, "/sd")
	if err != nil {
		t.Fatalf("browser.New: %v", err)
	}
	emu, err := emulator.New(r.exp, 0)
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	r.ctrl = app.NewController(card, b, emu, r.disp, start)
	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

// run polls once per remaining sample and publishes every event.
func (r *rig) run(t *testing.T, polls int) {
	t.Helper()
	for i := 0; i < polls; i++ {
		ev, err := r.poller.Poll()
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		events, err := r.ctrl.Handle(context.Background(), ev)
		if err != nil {
			t.Fatalf("poll %d: handle: %v", i, err)
		}
		for _, e := range events {
			if err := r.publisher.Publish(e); err != nil {
				t.Fatalf("poll %d: publish: %v", i, err)
			}
		}
	}
}

func card() fstest.MapFS {
	return fstest.MapFS{
		"basic.bin":          {Data: []byte{0x10, 0x20, 0x30, 0x40}},
		"games/pacman.bin":   {Data: []byte{0xC3, 0x00, 0x10}},
		"games/galaxian.bin": {Data: []byte{0xAA}},
	}
}

// TestIntegrationBrowseAndLoad drives a noisy knob from the root listing into
// a subdirectory, loads an image, and returns to programmer mode.
func TestIntegrationBrowseAndLoad(t *testing.T) {
	H, L := true, false
	samples := []gpio.Levels{
		lv(H, H, H), // initial read
		// Clockwise detent with a bounce on A after it falls.
		lv(H, L, H), lv(H, H, H), lv(H, L, H), lv(H, L, L), lv(H, H, L), lv(H, H, H),
		// Noisy press on "games/", held six polls after the bounce.
		lv(L, H, H), lv(H, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H),
		lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H),
		// Two clockwise detents: ".." -> galaxian.bin -> pacman.bin.
		lv(H, L, H), lv(H, L, L), lv(H, H, L), lv(H, H, H),
		lv(H, L, H), lv(H, L, L), lv(H, H, L), lv(H, H, H),
		// Press to load.
		lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H),
		lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H), lv(H, H, H),
		// Rotation while emulating is ignored.
		lv(H, L, H), lv(H, L, L), lv(H, H, L), lv(H, H, H),
		// Press to return to programmer mode.
		lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H), lv(L, H, H),
		lv(H, H, H),
	}

	r := newRig(t, card(), samples)
	r.run(t, len(samples)-1)

	type want struct {
		typ  app.EventType
		mode app.Mode
		path string
	}
	wants := []want{
		{app.EventSelect, app.ModeProgram, "games"},
		{app.EventEnterDir, app.ModeProgram, "/sd/games"},
		{app.EventSelect, app.ModeProgram, "games/galaxian.bin"},
		{app.EventSelect, app.ModeProgram, "games/pacman.bin"},
		{app.EventEmulate, app.ModeICE, "games/pacman.bin"},
		{app.EventProgram, app.ModeProgram, "games/pacman.bin"},
	}

	events := r.publisher.Events
	if len(events) != len(wants) {
		t.Fatalf("expected %d events, got %d: %+v", len(wants), len(events), events)
	}
	for i, w := range wants {
		if events[i].Type != w.typ || events[i].Mode != w.mode || events[i].Path != w.path {
			t.Errorf("event %d: expected %s/%s/%s, got %s/%s/%s",
				i, w.typ, w.mode, w.path, events[i].Type, events[i].Mode, events[i].Path)
		}
	}

	if got := r.exp.Bytes(); string(got) != string([]byte{0xC3, 0x00, 0x10}) {
		t.Errorf("expected pacman.bin in RAM, got % X", got)
	}
	if events[4].Bytes != 3 {
		t.Errorf("expected EMULATE to report 3 bytes, got %d", events[4].Bytes)
	}

	// The knob kept counting while emulating.
	if r.poller.Position() != 4 {
		t.Errorf("expected position 4, got %d", r.poller.Position())
	}
	counts := r.ctrl.CountsSnapshot()
	if counts.Presses != 3 || counts.Loads != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}

	wantFrame := display.Frame{"  ..", "  galaxian.bin", "> pacman.bin", ""}
	if r.disp.Last() != wantFrame {
		t.Errorf("expected %q, got %q", wantFrame, r.disp.Last())
	}
}

// TestIntegrationGlitchesDoNotNavigate verifies that half-turns and both
// channels dropping together never move the selection.
func TestIntegrationGlitchesDoNotNavigate(t *testing.T) {
	H, L := true, false
	samples := []gpio.Levels{
		lv(H, H, H),
		// Both channels drop in the same poll.
		lv(H, L, L), lv(H, H, L), lv(H, H, H),
		// A dips and recovers without B moving.
		lv(H, L, H), lv(H, H, H),
		// Half a clockwise cycle, then back the way it came.
		lv(H, L, H), lv(H, L, L), lv(H, L, H), lv(H, H, H),
	}

	r := newRig(t, card(), samples)
	r.run(t, len(samples)-1)

	if len(r.publisher.Events) != 0 {
		t.Errorf("expected no events, got %+v", r.publisher.Events)
	}
	if r.ctrl.Selected() != "basic.bin" {
		t.Errorf("expected selection unchanged, got %q", r.ctrl.Selected())
	}
	if r.poller.Position() != 0 {
		t.Errorf("expected position 0, got %d", r.poller.Position())
	}
}

// TestIntegrationPayloads checks the MQTT wire format of a published event.
func TestIntegrationPayloads(t *testing.T) {
	samples := []gpio.Levels{
		lv(true, true, true),
		lv(true, false, true), lv(true, false, false), lv(true, true, false), lv(true, true, true),
	}

	r := newRig(t, card(), samples)
	r.run(t, len(samples)-1)

	if len(r.publisher.Payloads()) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(r.publisher.Payloads()))
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(r.publisher.Payloads()[0], &parsed); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if parsed.UI.Event != "SELECT" || parsed.UI.Mode != "PROGRAM" {
		t.Errorf("unexpected payload: %+v", parsed.UI)
	}
	if parsed.UI.Path != "games" || parsed.UI.Position != 1 {
		t.Errorf("unexpected payload: %+v", parsed.UI)
	}
	if len(parsed.UI.ID) != 26 {
		t.Errorf("expected a ULID event id, got %q", parsed.UI.ID)
	}
	// The step landed at start+4ms; RFC3339 drops the fraction.
	if parsed.UI.Timestamp != "2026-01-01T12:00:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.UI.Timestamp)
	}
}
