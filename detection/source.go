// Package detection produces candidate target observations for the
// tracking core. The core never sees pixels: everything here is reduced
// to normalized image-plane coordinates before it leaves the package.
package detection

import (
	"context"

	"github.com/RonaldsonBellande/humanoid-robot-demos/tracking"
)

// Source delivers batches of candidate observations. Each batch is the
// result of one processed frame; an empty batch is a legitimate "saw
// nothing" report and may simply be skipped by implementations.
type Source interface {
	// Run captures and publishes observation batches until ctx is
	// canceled. It returns the first fatal capture error.
	Run(ctx context.Context) error

	// Observations returns the channel batches are published on.
	Observations() <-chan []tracking.Observation

	// Close releases capture resources.
	Close() error
}

// Normalize maps a pixel-space detection to the tracker's observation
// frame: x,y in [-1,1] with the top-left corner at (-1,-1), and the
// detection radius carried through as the size/confidence proxy.
func Normalize(cx, cy, radius float64, frameWidth, frameHeight int) tracking.Observation {
	halfW := float64(frameWidth) / 2
	halfH := float64(frameHeight) / 2
	return tracking.Observation{
		X:    (cx - halfW) / halfW,
		Y:    (cy - halfH) / halfH,
		Size: radius,
	}
}
