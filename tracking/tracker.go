package tracking

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/RonaldsonBellande/humanoid-robot-demos/pkg/timeutil"
)

// Status is the tracker's confidence in the target position.
type Status int

const (
	// StatusNotFound means no usable target: either never seen, or the
	// miss counter ran past the waiting window.
	StatusNotFound Status = iota
	// StatusWaiting means the target dropped out for a few ticks but was
	// seen recently enough to keep moving on decayed data.
	StatusWaiting
	// StatusFound means a fresh detection was consumed this tick.
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusWaiting:
		return "WAITING"
	case StatusFound:
		return "FOUND"
	default:
		return "UNKNOWN"
	}
}

// Commander receives gated pan/tilt offset commands in radians.
// Positive pan points the head left, positive tilt up (top-left of the
// image maps to positive offsets on both axes).
type Commander interface {
	CommandOffsets(pan, tilt float64)
}

// ScanRequester asks the external motion controller to sweep the head
// and reacquire a lost target. The sweep itself is not our job.
type ScanRequester interface {
	RequestScan()
}

// Snapshot is a point-in-time copy of the tracker state for status
// reporting.
type Snapshot struct {
	Armed      bool    `json:"armed"`
	Status     string  `json:"status"`
	MissCount  int     `json:"miss_count"`
	PanError   float64 `json:"pan_error_rad"`
	TiltError  float64 `json:"tilt_error_rad"`
	TargetSize float64 `json:"target_size"`
	SessionID  string  `json:"session_id,omitempty"`
}

// Tracker converts buffered detections into head offset commands.
//
// It is written for a single-threaded dispatcher: Ingest, HandleCommand,
// Arm/Disarm/Toggle and Tick must never run concurrently (see Runner).
// The tracker holds no locks of its own.
type Tracker struct {
	cfg       Config
	clock     timeutil.Clock
	commander Commander
	scanner   ScanRequester

	buf       Buffer
	armed     bool
	missCount int
	lastPan   float64
	lastTilt  float64
	lastSize  float64
	prevTick  time.Time
	status    Status
	sessionID string
}

// New creates a disarmed tracker. commander must not be nil; scanner may
// be nil when search is disabled.
func New(cfg Config, commander Commander, scanner ScanRequester, clock timeutil.Clock) *Tracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Tracker{
		cfg:       cfg,
		clock:     clock,
		commander: commander,
		scanner:   scanner,
		status:    StatusNotFound,
	}
}

// Ingest offers a detection batch to the observation buffer.
func (t *Tracker) Ingest(observations []Observation) {
	t.buf.Ingest(observations)
}

// HandleCommand maps an operator command string onto the tracker.
// Unrecognized commands are ignored.
func (t *Tracker) HandleCommand(cmd string) {
	switch cmd {
	case "start":
		t.Arm()
	case "stop":
		t.Disarm()
	case "toggle_start":
		t.Toggle()
	}
}

// Arm starts a tracking session.
func (t *Tracker) Arm() {
	t.armed = true
	t.sessionID = uuid.NewString()
	debugMsg("TRACKER", "tracking armed", t.sessionID)
}

// Disarm stops tracking and takes one last look: a final offset command
// is computed from whatever is buffered right now, even though tracking
// is already off. Skipping it would leave the head pointing at where the
// target was several ticks ago.
func (t *Tracker) Disarm() {
	t.armed = false
	debugMsg("TRACKER", "tracking disarmed", t.sessionID)

	pos := t.buf.Current()
	pan := -math.Atan(pos.X * math.Tan(t.cfg.FOVHalfWidth))
	tilt := -math.Atan(pos.Y * math.Tan(t.cfg.FOVHalfHeight))
	t.emit(pan, tilt)
}

// Toggle arms a disarmed tracker and vice versa.
func (t *Tracker) Toggle() {
	if t.armed {
		t.Disarm()
	} else {
		t.Arm()
	}
}

// SetUseSearch switches the search-on-loss behavior at runtime.
func (t *Tracker) SetUseSearch(use bool) {
	t.cfg.UseSearch = use
}

// Armed reports whether a tracking session is active.
func (t *Tracker) Armed() bool {
	return t.armed
}

// Tick runs one control cycle and returns the resulting status.
func (t *Tracker) Tick() Status {
	if !t.armed {
		t.buf.Reset()
		t.missCount = 0
		return StatusNotFound
	}

	status := StatusFound

	if t.buf.Current().Size <= 0 {
		t.missCount++
		switch {
		case t.missCount < t.cfg.WaitingThreshold:
			if t.status == StatusFound || t.status == StatusWaiting {
				status = StatusWaiting
			} else {
				status = StatusNotFound
			}
		case t.missCount > t.cfg.NotFoundThreshold:
			t.requestScan()
			t.missCount = 0
			status = StatusNotFound
		default:
			status = StatusNotFound
		}
	} else {
		t.missCount = 0
	}

	var panErr, tiltErr, size float64

	switch status {
	case StatusNotFound:
		t.setStatus(status)
		return status

	case StatusWaiting:
		// Coast on decayed last-known data instead of stopping dead.
		// The decayed value becomes the new baseline, so consecutive
		// Waiting ticks compound the decay.
		panErr = t.lastPan * t.cfg.Decay
		tiltErr = t.lastTilt * t.cfg.Decay
		size = t.lastSize

	case StatusFound:
		pos := t.buf.Current()
		panErr = -math.Atan(pos.X * math.Tan(t.cfg.FOVHalfWidth))
		tiltErr = -math.Atan(pos.Y * math.Tan(t.cfg.FOVHalfHeight))
		size = pos.Size
	}

	dt := t.elapsed()
	panCmd := pdFilter(panErr, t.lastPan, dt, t.cfg.PGain, t.cfg.DGain)
	tiltCmd := pdFilter(tiltErr, t.lastTilt, dt, t.cfg.PGain, t.cfg.DGain)

	debugMsgVerbose("TRACKER", fmt.Sprintf("%s error pan=%.4f tilt=%.4f dt=%.4fs cmd pan=%.4f tilt=%.4f",
		status, panErr, tiltErr, dt, panCmd, tiltCmd), t.sessionID)

	t.emit(panCmd, tiltCmd)

	// The unfiltered error is the next tick's derivative baseline and
	// the seed for Waiting-state decay.
	t.lastPan = panErr
	t.lastTilt = tiltErr
	t.lastSize = size

	t.buf.Reset()
	t.setStatus(status)
	return status
}

// Snapshot returns a copy of the current tracker state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Armed:      t.armed,
		Status:     t.status.String(),
		MissCount:  t.missCount,
		PanError:   t.lastPan,
		TiltError:  t.lastTilt,
		TargetSize: t.lastSize,
		SessionID:  t.sessionID,
	}
}

// elapsed returns the seconds since the previous tick that reached the
// filter stage, falling back to the nominal period on the first tick or
// when the clock reports a non-positive interval.
func (t *Tracker) elapsed() float64 {
	now := t.clock.Now()
	prev := t.prevTick
	t.prevTick = now

	if prev.IsZero() {
		return t.cfg.NominalPeriod.Seconds()
	}
	dt := now.Sub(prev).Seconds()
	if dt <= 0 {
		return t.cfg.NominalPeriod.Seconds()
	}
	return dt
}

// emit forwards an offset command to the head unless both axes are below
// the minimum-command gate.
func (t *Tracker) emit(pan, tilt float64) {
	if math.Abs(pan) < t.cfg.MinCommand && math.Abs(tilt) < t.cfg.MinCommand {
		return
	}
	t.commander.CommandOffsets(pan, tilt)
}

func (t *Tracker) requestScan() {
	if !t.cfg.UseSearch || t.scanner == nil {
		return
	}
	debugMsg("TRACKER", "target lost - requesting search sweep", t.sessionID)
	t.scanner.RequestScan()
}

func (t *Tracker) setStatus(s Status) {
	if t.status != s {
		debugMsg("TRACKER", fmt.Sprintf("status %s -> %s (misses %d)", t.status, s, t.missCount), t.sessionID)
	}
	t.status = s
}
