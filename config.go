package main

import (
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/RonaldsonBellande/humanoid-robot-demos/detection"
	"github.com/RonaldsonBellande/humanoid-robot-demos/tracking"
)

// TrackerConfig is the YAML-facing tuning block for the tracking core.
// Angles are degrees and intervals are milliseconds here; conversion to
// the core's radians/durations happens in Tracking().
type TrackerConfig struct {
	FOVWidthDeg       float64 `yaml:"fov_width_deg" validate:"gt=0,lt=180"`
	FOVHeightDeg      float64 `yaml:"fov_height_deg" validate:"gt=0,lt=180"`
	WaitingThreshold  int     `yaml:"waiting_threshold" validate:"gt=0"`
	NotFoundThreshold int     `yaml:"not_found_threshold" validate:"gt=0"`
	PGain             float64 `yaml:"p_gain" validate:"gte=0"`
	DGain             float64 `yaml:"d_gain" validate:"gte=0"`
	MinCommandDeg     float64 `yaml:"min_command_deg" validate:"gte=0"`
	Decay             float64 `yaml:"decay" validate:"gt=0,lte=1"`
	UseSearch         bool    `yaml:"use_search"`
	TickPeriodMS      int     `yaml:"tick_period_ms" validate:"gt=0"`
}

// DetectorConfig is the YAML-facing block for the ball detector.
type DetectorConfig struct {
	HueLow  float64 `yaml:"hue_low" validate:"gte=0,lte=180"`
	HueHigh float64 `yaml:"hue_high" validate:"gte=0,lte=180"`
	SatLow  float64 `yaml:"sat_low" validate:"gte=0,lte=255"`
	SatHigh float64 `yaml:"sat_high" validate:"gte=0,lte=255"`
	ValLow  float64 `yaml:"val_low" validate:"gte=0,lte=255"`
	ValHigh float64 `yaml:"val_high" validate:"gte=0,lte=255"`

	MinRadiusPx     int `yaml:"min_radius_px" validate:"gt=0"`
	MaxRadiusPx     int `yaml:"max_radius_px" validate:"gt=0"`
	FrameIntervalMS int `yaml:"frame_interval_ms" validate:"gte=0"`
}

// HeadConfig is the YAML-facing block for the head bridge.
type HeadConfig struct {
	BridgeURL   string `yaml:"bridge_url" validate:"omitempty,url"`
	RateLimitMS int    `yaml:"rate_limit_ms" validate:"gte=0"`
}

// ServerConfig configures the status/command HTTP endpoint.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// AppConfig is the whole headtrack.yml file.
type AppConfig struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Detector DetectorConfig `yaml:"detector"`
	Head     HeadConfig     `yaml:"head"`
	Server   ServerConfig   `yaml:"server"`
}

// DefaultAppConfig returns the stock tuning used when no config file is
// present.
func DefaultAppConfig() AppConfig {
	core := tracking.DefaultConfig()
	det := detection.DefaultBallDetectorConfig()
	return AppConfig{
		Tracker: TrackerConfig{
			FOVWidthDeg:       core.FOVHalfWidth * 180 / math.Pi,
			FOVHeightDeg:      core.FOVHalfHeight * 180 / math.Pi,
			WaitingThreshold:  core.WaitingThreshold,
			NotFoundThreshold: core.NotFoundThreshold,
			PGain:             core.PGain,
			DGain:             core.DGain,
			MinCommandDeg:     core.MinCommand * 180 / math.Pi,
			Decay:             core.Decay,
			UseSearch:         core.UseSearch,
			TickPeriodMS:      int(core.NominalPeriod / time.Millisecond),
		},
		Detector: DetectorConfig{
			HueLow: det.HueLow, HueHigh: det.HueHigh,
			SatLow: det.SatLow, SatHigh: det.SatHigh,
			ValLow: det.ValLow, ValHigh: det.ValHigh,
			MinRadiusPx:     det.MinRadius,
			MaxRadiusPx:     det.MaxRadius,
			FrameIntervalMS: int(det.FrameInterval / time.Millisecond),
		},
		Head: HeadConfig{
			RateLimitMS: 100,
		},
		Server: ServerConfig{
			Port: 8642,
		},
	}
}

// LoadAppConfig reads and validates the config file. A missing file is
// not an error: the defaults are returned unchanged.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints plus the cross-field rules the
// validator tags cannot express.
func (c AppConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, "validate config")
	}
	if c.Tracker.NotFoundThreshold < c.Tracker.WaitingThreshold {
		return errors.Errorf("not_found_threshold (%d) must be >= waiting_threshold (%d)",
			c.Tracker.NotFoundThreshold, c.Tracker.WaitingThreshold)
	}
	if c.Detector.MaxRadiusPx < c.Detector.MinRadiusPx {
		return errors.Errorf("max_radius_px (%d) must be >= min_radius_px (%d)",
			c.Detector.MaxRadiusPx, c.Detector.MinRadiusPx)
	}
	return nil
}

// Tracking converts the YAML block to the core's config.
func (c AppConfig) Tracking() tracking.Config {
	return tracking.Config{
		FOVHalfWidth:      c.Tracker.FOVWidthDeg * math.Pi / 180,
		FOVHalfHeight:     c.Tracker.FOVHeightDeg * math.Pi / 180,
		WaitingThreshold:  c.Tracker.WaitingThreshold,
		NotFoundThreshold: c.Tracker.NotFoundThreshold,
		PGain:             c.Tracker.PGain,
		DGain:             c.Tracker.DGain,
		MinCommand:        c.Tracker.MinCommandDeg * math.Pi / 180,
		Decay:             c.Tracker.Decay,
		UseSearch:         c.Tracker.UseSearch,
		NominalPeriod:     time.Duration(c.Tracker.TickPeriodMS) * time.Millisecond,
	}
}

// Detection converts the YAML block to the detector's config.
func (c AppConfig) Detection() detection.BallDetectorConfig {
	return detection.BallDetectorConfig{
		HueLow: c.Detector.HueLow, SatLow: c.Detector.SatLow, ValLow: c.Detector.ValLow,
		HueHigh: c.Detector.HueHigh, SatHigh: c.Detector.SatHigh, ValHigh: c.Detector.ValHigh,
		MinRadius:     c.Detector.MinRadiusPx,
		MaxRadius:     c.Detector.MaxRadiusPx,
		FrameInterval: time.Duration(c.Detector.FrameIntervalMS) * time.Millisecond,
	}
}
