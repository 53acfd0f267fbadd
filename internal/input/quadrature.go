package input

// Channel identifies one of the two encoder channels.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelA
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return "NONE"
	}
}

// State is the decoder's position within one detent-to-detent cycle.
type State int

const (
	// AtDetent is the resting position, both channels high.
	AtDetent State = iota
	// LeftDetentViaA means channel A fell first.
	LeftDetentViaA
	// LeftDetentViaB means channel B fell first.
	LeftDetentViaB
	// AmbiguousGlitch means the cycle began without a clean single-channel
	// falling edge. It completes without a step.
	AmbiguousGlitch

	numStates
)

func (s State) String() string {
	switch s {
	case AtDetent:
		return "AT_DETENT"
	case LeftDetentViaA:
		return "LEFT_DETENT_VIA_A"
	case LeftDetentViaB:
		return "LEFT_DETENT_VIA_B"
	case AmbiguousGlitch:
		return "AMBIGUOUS_GLITCH"
	default:
		return "INVALID"
	}
}

// sample packs a channel pair as A<<1 | B.
type sample uint8

const (
	sampleLL sample = 0 // A low, B low
	sampleLH sample = 1 // A low, B high
	sampleHL sample = 2 // A high, B low
	sampleHH sample = 3 // detent
)

func sampleOf(a, b bool) sample {
	var s sample
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// transitions[state][sample] is the next state. Mid-cycle samples other than
// a return to the detent keep the current state.
var transitions = [numStates][4]State{
	AtDetent: {
		sampleLL: AmbiguousGlitch,
		sampleLH: LeftDetentViaA,
		sampleHL: LeftDetentViaB,
		sampleHH: AtDetent,
	},
	LeftDetentViaA: {
		sampleLL: LeftDetentViaA,
		sampleLH: LeftDetentViaA,
		sampleHL: LeftDetentViaA,
		sampleHH: AtDetent,
	},
	LeftDetentViaB: {
		sampleLL: LeftDetentViaB,
		sampleLH: LeftDetentViaB,
		sampleHL: LeftDetentViaB,
		sampleHH: AtDetent,
	},
	AmbiguousGlitch: {
		sampleLL: AmbiguousGlitch,
		sampleLH: AmbiguousGlitch,
		sampleHL: AmbiguousGlitch,
		sampleHH: AtDetent,
	},
}

// Decoder decodes a two-channel quadrature encoder into detent steps.
//
// One step is reported per full cycle that leaves and re-enters the detent
// (A high, B high). A falls first and B rises last: +1. B falls first and A
// rises last: -1. Anything else completes the cycle with 0.
type Decoder struct {
	state         State
	prev          sample
	position      int
	lastDirection int
}

// NewDecoder creates a decoder from the encoder's current channel levels.
// If the encoder is not resting at the detent, the first cycle is discarded.
func NewDecoder(a, b bool) *Decoder {
	s := sampleOf(a, b)
	d := &Decoder{prev: s, state: AtDetent}
	if s != sampleHH {
		d.state = AmbiguousGlitch
	}
	return d
}

// Update feeds one sample of both channels and returns the step decided by
// this call: -1, 0 or +1.
func (d *Decoder) Update(a, b bool) int {
	d.lastDirection = 0

	cur := sampleOf(a, b)
	if cur == d.prev {
		return 0
	}

	prev := d.prev
	from := d.state
	d.prev = cur
	d.state = transitions[from][cur]

	if from == AtDetent || d.state != AtDetent {
		return 0
	}

	d.lastDirection = decide(fallingChannel(from), risingChannel(prev))
	d.position += d.lastDirection
	return d.lastDirection
}

// fallingChannel is the channel that fell first on leaving the detent.
func fallingChannel(s State) Channel {
	switch s {
	case LeftDetentViaA:
		return ChannelA
	case LeftDetentViaB:
		return ChannelB
	default:
		return ChannelNone
	}
}

// risingChannel is the channel that rose last, given the sample immediately
// before the return to the detent. Both channels rising together is unknown.
func risingChannel(prev sample) Channel {
	switch prev {
	case sampleLH:
		return ChannelA
	case sampleHL:
		return ChannelB
	default:
		return ChannelNone
	}
}

func decide(falling, rising Channel) int {
	switch {
	case falling == ChannelA && rising == ChannelB:
		return 1
	case falling == ChannelB && rising == ChannelA:
		return -1
	default:
		return 0
	}
}

// Position returns the cumulative signed step count.
func (d *Decoder) Position() int {
	return d.position
}

// LastDirection returns the step decided by the most recent Update.
func (d *Decoder) LastDirection() int {
	return d.lastDirection
}

// State returns the current cycle state.
func (d *Decoder) State() State {
	return d.state
}

// PendingFalling returns the channel that fell first in the cycle in
// progress, or ChannelNone at the detent or after a glitch.
func (d *Decoder) PendingFalling() Channel {
	return fallingChannel(d.state)
}
