package tracking

import (
	"math"
	"time"
)

// Config holds the tracking parameters. It is immutable after the
// tracker is constructed; the only runtime switch is SetUseSearch.
type Config struct {
	// FOVHalfWidth and FOVHalfHeight are the camera frustum half-angles
	// in radians, used to map normalized image coordinates to angular
	// error.
	FOVHalfWidth  float64
	FOVHalfHeight float64

	// WaitingThreshold is the consecutive-miss count below which a
	// previously seen target is only "waiting" (short occlusion or
	// detector flicker) rather than lost.
	WaitingThreshold int

	// NotFoundThreshold is the consecutive-miss count above which the
	// target is declared lost and a search sweep is requested.
	NotFoundThreshold int

	// PGain and DGain are the proportional/derivative gains shared by
	// the pan and tilt axes.
	PGain float64
	DGain float64

	// MinCommand is the minimum offset magnitude in radians. Commands
	// with both axes below it are suppressed to avoid jittering the
	// head servos.
	MinCommand float64

	// Decay scales the last known error on each Waiting tick.
	Decay float64

	// UseSearch enables the search request when NotFoundThreshold is
	// exceeded.
	UseSearch bool

	// NominalPeriod is the expected tick cadence. It substitutes for
	// the measured elapsed time on the first tick and whenever the
	// clock reports a non-positive interval.
	NominalPeriod time.Duration
}

// DefaultConfig returns the tuning used by the stock pan/tilt head.
func DefaultConfig() Config {
	return Config{
		FOVHalfWidth:      26.4 * math.Pi / 180,
		FOVHalfHeight:     21.6 * math.Pi / 180,
		WaitingThreshold:  5,
		NotFoundThreshold: 50,
		PGain:             0.75,
		DGain:             0.04,
		MinCommand:        1 * math.Pi / 180,
		Decay:             0.7,
		UseSearch:         true,
		NominalPeriod:     33 * time.Millisecond,
	}
}
