package detection

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/RonaldsonBellande/humanoid-robot-demos/tracking"
)

// BallDetectorConfig tunes the color-and-shape detector.
type BallDetectorConfig struct {
	// HSV color window for the target ball.
	HueLow, SatLow, ValLow    float64
	HueHigh, SatHigh, ValHigh float64

	// Hough circle radius bounds in pixels.
	MinRadius int
	MaxRadius int

	// FrameInterval paces capture; zero means capture as fast as the
	// source delivers.
	FrameInterval time.Duration
}

// DefaultBallDetectorConfig matches an orange ball under indoor light.
func DefaultBallDetectorConfig() BallDetectorConfig {
	return BallDetectorConfig{
		HueLow: 5, SatLow: 120, ValLow: 90,
		HueHigh: 20, SatHigh: 255, ValHigh: 255,
		MinRadius:     10,
		MaxRadius:     200,
		FrameInterval: 33 * time.Millisecond,
	}
}

// BallDetector finds ball candidates with an HSV mask and a Hough
// circle transform, and publishes them as normalized observations.
type BallDetector struct {
	cfg     BallDetectorConfig
	capture *gocv.VideoCapture
	out     chan []tracking.Observation

	mu     sync.Mutex
	closed bool
}

// NewBallDetector opens the capture source. source is anything gocv
// accepts: a device index ("0") or a stream URL.
func NewBallDetector(source string, cfg BallDetectorConfig) (*BallDetector, error) {
	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture source %q", source)
	}
	return &BallDetector{
		cfg:     cfg,
		capture: capture,
		out:     make(chan []tracking.Observation, 4),
	}, nil
}

// Observations returns the output channel.
func (d *BallDetector) Observations() <-chan []tracking.Observation {
	return d.out
}

// Run captures frames and publishes candidate batches until ctx is
// canceled. Frames with no candidates publish nothing: a miss is the
// absence of fresh data, not an event.
func (d *BallDetector) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if ok := d.capture.Read(&frame); !ok {
			return errors.New("capture source closed")
		}
		if frame.Empty() {
			continue
		}

		batch := d.detect(frame)
		if len(batch) > 0 {
			select {
			case d.out <- batch:
			default:
				// The control loop is behind; stale candidates are
				// worthless, so drop rather than queue them.
				debugMsg("DETECT_WARN", "observation channel full - dropping batch")
			}
		}

		if d.cfg.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(d.cfg.FrameInterval):
			}
		}
	}
}

// detect runs the mask + Hough pipeline on one frame.
func (d *BallDetector) detect(frame gocv.Mat) []tracking.Observation {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lb := gocv.NewScalar(d.cfg.HueLow, d.cfg.SatLow, d.cfg.ValLow, 0)
	ub := gocv.NewScalar(d.cfg.HueHigh, d.cfg.SatHigh, d.cfg.ValHigh, 0)
	gocv.InRangeWithScalar(hsv, lb, ub, &mask)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(mask, &blurred, image.Pt(9, 9), 2, 2, gocv.BorderDefault)

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		1.5, float64(blurred.Rows()/8), 100, 20,
		d.cfg.MinRadius, d.cfg.MaxRadius)

	if circles.Empty() {
		return nil
	}

	width := frame.Cols()
	height := frame.Rows()

	var batch []tracking.Observation
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		obs := Normalize(float64(v[0]), float64(v[1]), float64(v[2]), width, height)
		batch = append(batch, obs)
	}

	if len(batch) > 0 {
		debugMsg("DETECT", fmt.Sprintf("%d candidate(s), best size %.1f", len(batch), maxSize(batch)))
	}
	return batch
}

// Close releases the capture source.
func (d *BallDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.capture.Close()
}

func maxSize(batch []tracking.Observation) float64 {
	best := 0.0
	for _, obs := range batch {
		if obs.Size > best {
			best = obs.Size
		}
	}
	return best
}
