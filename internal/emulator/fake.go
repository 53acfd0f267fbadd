package emulator

// FakeExpander records every latch write for test assertions.
type FakeExpander struct {
	// Writes contains each value written, in order.
	Writes []uint16

	// WriteError, if set, is returned once FailAfter writes have succeeded.
	WriteError error
	FailAfter  int

	// Closed tracks if Close was called.
	Closed bool
}

// Write records v.
func (f *FakeExpander) Write(v uint16) error {
	if f.WriteError != nil && len(f.Writes) >= f.FailAfter {
		return f.WriteError
	}
	f.Writes = append(f.Writes, v)
	return nil
}

// Close marks the expander as closed.
func (f *FakeExpander) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent value written.
func (f *FakeExpander) Last() uint16 {
	if len(f.Writes) == 0 {
		return 0
	}
	return f.Writes[len(f.Writes)-1]
}

// Bytes reconstructs the data written to RAM by watching the write strobe:
// the data bus is sampled on each falling edge of the write line while the
// chip is selected.
func (f *FakeExpander) Bytes() []byte {
	var out []byte
	prev := idle
	for _, v := range f.Writes {
		fell := prev&(1<<BitWrite) != 0 && v&(1<<BitWrite) == 0
		selected := v&(1<<BitSelect) == 0
		if fell && selected {
			out = append(out, byte(v&dataMask))
		}
		prev = v
	}
	return out
}

// Count returns how many times bit switched to its active level.
func (f *FakeExpander) Count(bit uint, activeHigh bool) int {
	n := 0
	prev := idle
	for _, v := range f.Writes {
		was := prev&(1<<bit) != 0
		is := v&(1<<bit) != 0
		if was != is && is == activeHigh {
			n++
		}
		prev = v
	}
	return n
}
