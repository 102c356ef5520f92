package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RonaldsonBellande/humanoid-robot-demos/pkg/timeutil"
)

type fakeHead struct {
	pans  []float64
	tilts []float64
}

func (f *fakeHead) CommandOffsets(pan, tilt float64) {
	f.pans = append(f.pans, pan)
	f.tilts = append(f.tilts, tilt)
}

type fakeScanner struct {
	requests int
}

func (f *fakeScanner) RequestScan() {
	f.requests++
}

func testConfig() Config {
	return Config{
		FOVHalfWidth:      30 * math.Pi / 180,
		FOVHalfHeight:     20 * math.Pi / 180,
		WaitingThreshold:  2,
		NotFoundThreshold: 4,
		PGain:             0.75,
		DGain:             0.04,
		MinCommand:        0,
		Decay:             0.7,
		UseSearch:         true,
		NominalPeriod:     100 * time.Millisecond,
	}
}

// angular error for a normalized coordinate under the test FOV.
func panErrorFor(cfg Config, x float64) float64 {
	return -math.Atan(x * math.Tan(cfg.FOVHalfWidth))
}

func tiltErrorFor(cfg Config, y float64) float64 {
	return -math.Atan(y * math.Tan(cfg.FOVHalfHeight))
}

func TestTickDisarmedDoesNothing(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	scanner := &fakeScanner{}
	tr := New(cfg, headFake, scanner, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Ingest([]Observation{{X: 0.5, Y: 0.5, Size: 10}})
	status := tr.Tick()

	assert.Equal(t, StatusNotFound, status)
	assert.Empty(t, headFake.pans)
	assert.Zero(t, scanner.requests)

	// The disarmed tick consumed the buffered detection, so arming now
	// starts from nothing.
	tr.Arm()
	assert.Equal(t, StatusNotFound, tr.Tick())
	assert.Empty(t, headFake.pans)
}

func TestFoundTickCommandsHead(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	tr := New(cfg, headFake, &fakeScanner{}, clock)

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.5, Y: -0.25, Size: 10}})

	status := tr.Tick()
	require.Equal(t, StatusFound, status)
	require.Len(t, headFake.pans, 1)

	// First tick runs on the nominal period.
	dt := cfg.NominalPeriod.Seconds()
	panErr := panErrorFor(cfg, 0.5)
	tiltErr := tiltErrorFor(cfg, -0.25)
	assert.InDelta(t, panErr*cfg.PGain+(panErr/dt)*cfg.DGain, headFake.pans[0], 1e-9)
	assert.InDelta(t, tiltErr*cfg.PGain+(tiltErr/dt)*cfg.DGain, headFake.tilts[0], 1e-9)

	snap := tr.Snapshot()
	assert.True(t, snap.Armed)
	assert.Equal(t, "FOUND", snap.Status)
	assert.InDelta(t, panErr, snap.PanError, 1e-9)
	assert.Equal(t, 10.0, snap.TargetSize)
	assert.NotEmpty(t, snap.SessionID)
}

func TestTickConsumesBuffer(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	tr := New(cfg, headFake, &fakeScanner{}, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.3, Y: 0.3, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())

	// Nothing new arrived, so the next tick is a miss.
	assert.Equal(t, StatusWaiting, tr.Tick())
}

func TestMissHysteresisAndSearch(t *testing.T) {
	cfg := testConfig() // waiting at <2 misses, search past 4
	headFake := &fakeHead{}
	scanner := &fakeScanner{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tr := New(cfg, headFake, scanner, clock)

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.4, Y: 0.0, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())

	clock.Advance(cfg.NominalPeriod)
	assert.Equal(t, StatusWaiting, tr.Tick()) // miss 1
	assert.Zero(t, scanner.requests)

	assert.Equal(t, StatusNotFound, tr.Tick()) // miss 2
	assert.Equal(t, StatusNotFound, tr.Tick()) // miss 3
	assert.Equal(t, StatusNotFound, tr.Tick()) // miss 4
	assert.Zero(t, scanner.requests)

	assert.Equal(t, StatusNotFound, tr.Tick()) // miss 5 crosses the threshold
	assert.Equal(t, 1, scanner.requests)

	// Counter was reset: another full run of misses before the next
	// sweep request.
	for i := 0; i < 4; i++ {
		assert.Equal(t, StatusNotFound, tr.Tick())
	}
	assert.Equal(t, 1, scanner.requests)
	tr.Tick()
	assert.Equal(t, 2, scanner.requests)
}

func TestMissesFromNotFoundNeverWait(t *testing.T) {
	cfg := testConfig()
	tr := New(cfg, &fakeHead{}, &fakeScanner{}, timeutil.NewMockClock(time.Unix(0, 0)))

	// Armed but the target was never seen: early misses stay NOT_FOUND
	// because there is no last-known position to coast on.
	tr.Arm()
	assert.Equal(t, StatusNotFound, tr.Tick())
	assert.Equal(t, StatusNotFound, tr.Tick())
}

func TestWaitingDecayCompounds(t *testing.T) {
	cfg := testConfig()
	cfg.WaitingThreshold = 3 // allow two consecutive waiting ticks
	headFake := &fakeHead{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tr := New(cfg, headFake, &fakeScanner{}, clock)

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.5, Y: 0.2, Size: 8}})
	require.Equal(t, StatusFound, tr.Tick())

	dt := cfg.NominalPeriod.Seconds()
	lastPan := panErrorFor(cfg, 0.5)

	clock.Advance(cfg.NominalPeriod)
	require.Equal(t, StatusWaiting, tr.Tick())
	require.Len(t, headFake.pans, 2)
	decayed1 := lastPan * cfg.Decay
	assert.InDelta(t, decayed1*cfg.PGain+((decayed1-lastPan)/dt)*cfg.DGain, headFake.pans[1], 1e-9)

	// The decayed value became the new baseline, so the next waiting
	// tick decays it again.
	clock.Advance(cfg.NominalPeriod)
	require.Equal(t, StatusWaiting, tr.Tick())
	require.Len(t, headFake.pans, 3)
	decayed2 := decayed1 * cfg.Decay
	assert.InDelta(t, decayed2*cfg.PGain+((decayed2-decayed1)/dt)*cfg.DGain, headFake.pans[2], 1e-9)
}

func TestSearchDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.UseSearch = false
	scanner := &fakeScanner{}
	tr := New(cfg, &fakeHead{}, scanner, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Arm()
	for i := 0; i < 20; i++ {
		tr.Tick()
	}
	assert.Zero(t, scanner.requests)

	tr.SetUseSearch(true)
	for i := 0; i < 5; i++ {
		tr.Tick()
	}
	assert.Equal(t, 1, scanner.requests)
}

func TestNilScannerIsSafe(t *testing.T) {
	cfg := testConfig()
	tr := New(cfg, &fakeHead{}, nil, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Arm()
	for i := 0; i < 10; i++ {
		assert.NotPanics(t, func() { tr.Tick() })
	}
}

func TestMinCommandGate(t *testing.T) {
	cfg := testConfig()
	cfg.MinCommand = 1 * math.Pi / 180
	headFake := &fakeHead{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tr := New(cfg, headFake, &fakeScanner{}, clock)

	tr.Arm()

	// Target almost centered: both axis commands fall under one degree
	// and the head is left alone.
	tr.Ingest([]Observation{{X: 0.01, Y: 0.01, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	assert.Empty(t, headFake.pans)

	// One axis over the gate is enough to command both.
	clock.Advance(cfg.NominalPeriod)
	tr.Ingest([]Observation{{X: 0.5, Y: 0.01, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	require.Len(t, headFake.pans, 1)
	assert.Less(t, math.Abs(headFake.tilts[0]), cfg.MinCommand)
}

func TestDisarmTakesLastLook(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	tr := New(cfg, headFake, &fakeScanner{}, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.5, Y: 0.25, Size: 10}})
	tr.Disarm()

	assert.False(t, tr.Armed())
	require.Len(t, headFake.pans, 1)

	// The last look is the raw angular error, not a filtered command.
	assert.InDelta(t, panErrorFor(cfg, 0.5), headFake.pans[0], 1e-9)
	assert.InDelta(t, tiltErrorFor(cfg, 0.25), headFake.tilts[0], 1e-9)
}

func TestElapsedUsesMeasuredInterval(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tr := New(cfg, headFake, &fakeScanner{}, clock)

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.2, Y: 0.0, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	err1 := panErrorFor(cfg, 0.2)

	// Twice the nominal period halves the derivative contribution.
	clock.Advance(200 * time.Millisecond)
	tr.Ingest([]Observation{{X: 0.4, Y: 0.0, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	require.Len(t, headFake.pans, 2)

	err2 := panErrorFor(cfg, 0.4)
	assert.InDelta(t, err2*cfg.PGain+((err2-err1)/0.2)*cfg.DGain, headFake.pans[1], 1e-9)
}

func TestElapsedNonPositiveFallsBack(t *testing.T) {
	cfg := testConfig()
	headFake := &fakeHead{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tr := New(cfg, headFake, &fakeScanner{}, clock)

	tr.Arm()
	tr.Ingest([]Observation{{X: 0.2, Y: 0.0, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	err1 := panErrorFor(cfg, 0.2)

	// Clock did not move: the nominal period substitutes for dt.
	tr.Ingest([]Observation{{X: 0.4, Y: 0.0, Size: 5}})
	require.Equal(t, StatusFound, tr.Tick())
	require.Len(t, headFake.pans, 2)

	err2 := panErrorFor(cfg, 0.4)
	dt := cfg.NominalPeriod.Seconds()
	assert.InDelta(t, err2*cfg.PGain+((err2-err1)/dt)*cfg.DGain, headFake.pans[1], 1e-9)
}

func TestHandleCommand(t *testing.T) {
	tr := New(testConfig(), &fakeHead{}, &fakeScanner{}, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.HandleCommand("start")
	assert.True(t, tr.Armed())

	tr.HandleCommand("stop")
	assert.False(t, tr.Armed())

	tr.HandleCommand("toggle_start")
	assert.True(t, tr.Armed())
	tr.HandleCommand("toggle_start")
	assert.False(t, tr.Armed())

	tr.HandleCommand("do_the_robot")
	assert.False(t, tr.Armed())
}

func TestArmStartsNewSession(t *testing.T) {
	tr := New(testConfig(), &fakeHead{}, &fakeScanner{}, timeutil.NewMockClock(time.Unix(0, 0)))

	tr.Arm()
	first := tr.Snapshot().SessionID
	require.NotEmpty(t, first)

	tr.Disarm()
	tr.Arm()
	assert.NotEqual(t, first, tr.Snapshot().SessionID)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", StatusNotFound.String())
	assert.Equal(t, "WAITING", StatusWaiting.String())
	assert.Equal(t, "FOUND", StatusFound.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}
