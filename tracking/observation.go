package tracking

// Observation is one candidate target position reported by the detector.
// X and Y are normalized image-plane coordinates in [-1, 1] with the
// top-left corner at (-1, -1). Size is the detector's size/confidence
// proxy; a Size of 0 means "nothing seen".
type Observation struct {
	X    float64
	Y    float64
	Size float64
}

// Buffer holds the best observation seen since the last consumer reset.
//
// The policy is "keep best seen", not a sliding window: an incoming
// candidate only replaces the held one when its Size is strictly larger,
// and nothing clears the buffer between Ingest calls. The consumer must
// call Reset after using a cycle's data or a single large detection would
// dominate forever.
type Buffer struct {
	held Observation
}

// Ingest offers a batch of candidates to the buffer. Empty batches are a
// no-op.
func (b *Buffer) Ingest(observations []Observation) {
	for _, obs := range observations {
		if b.held.Size >= obs.Size {
			continue
		}
		b.held = obs
	}
}

// Current returns the held observation without consuming it.
func (b *Buffer) Current() Observation {
	return b.held
}

// Reset marks the held observation as consumed. Position is kept so a
// late reader (the disarm "last look") still sees where the target was.
func (b *Buffer) Reset() {
	b.held.Size = 0
}
