// Package head talks to the pan/tilt head bridge. It implements the
// tracking package's Commander and ScanRequester interfaces over HTTP
// and deliberately knows nothing about how offsets are produced.
package head

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Command is one unit of work for the bridge worker.
type Command struct {
	Kind string  `json:"kind"` // "offset" or "scan"
	Pan  float64 `json:"pan_rad,omitempty"`
	Tilt float64 `json:"tilt_rad,omitempty"`
}

// Controller is the actuator-side lifecycle contract.
type Controller interface {
	Start()
	Stop()
	CommandOffsets(pan, tilt float64)
	RequestScan()
}

// HTTPController sends joint-offset and scan commands to a head bridge
// over HTTP. Commands are queued on a buffered channel and processed by
// a single worker, so the bridge sees them strictly in order; when the
// queue is full the newest command is dropped rather than blocking the
// control loop.
type HTTPController struct {
	baseURL   string
	client    *http.Client
	commands  chan Command
	done      chan struct{}
	rateLimit time.Duration
	lastSent  time.Time
}

// NewHTTPController creates a controller for the bridge at baseURL
// (e.g. http://robot:8642). rateLimit is the minimum spacing between
// offset commands; scan requests bypass it.
func NewHTTPController(baseURL string, rateLimit time.Duration) *HTTPController {
	return &HTTPController{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 5 * time.Second},
		commands:  make(chan Command, 10),
		done:      make(chan struct{}),
		rateLimit: rateLimit,
	}
}

// Start begins processing queued commands.
func (c *HTTPController) Start() {
	go c.processCommands()
}

// Stop shuts the worker down. Pending commands are discarded.
func (c *HTTPController) Stop() {
	close(c.done)
}

// CommandOffsets queues a pan/tilt offset command. Offsets arriving
// faster than the rate limit, or while the queue is full, are dropped:
// the next control tick will supply a fresher correction anyway.
func (c *HTTPController) CommandOffsets(pan, tilt float64) {
	now := time.Now()
	if !c.lastSent.IsZero() && now.Sub(c.lastSent) < c.rateLimit {
		debugMsg("HEAD", fmt.Sprintf("rate limited offset pan=%.4f tilt=%.4f", pan, tilt))
		return
	}
	c.lastSent = now
	c.enqueue(Command{Kind: "offset", Pan: pan, Tilt: tilt})
}

// RequestScan queues a one-shot search sweep request.
func (c *HTTPController) RequestScan() {
	c.enqueue(Command{Kind: "scan"})
}

func (c *HTTPController) enqueue(cmd Command) {
	select {
	case c.commands <- cmd:
	default:
		debugMsg("HEAD_WARN", fmt.Sprintf("command queue full - dropping %s", cmd.Kind))
	}
}

// processCommands is the bridge worker loop.
func (c *HTTPController) processCommands() {
	for {
		select {
		case <-c.done:
			return
		case cmd := <-c.commands:
			if err := c.send(cmd); err != nil {
				debugMsg("HEAD_ERROR", fmt.Sprintf("command %s failed: %v", cmd.Kind, err))
			}
		}
	}
}

// send posts one command to the bridge, retrying transient failures.
func (c *HTTPController) send(cmd Command) error {
	path := "/head/offsets"
	if cmd.Kind == "scan" {
		path = "/head/scan"
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(err, "marshal head command")
	}

	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, "create head request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "post head command")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		lastErr = errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		debugMsg("HEAD_WARN", fmt.Sprintf("command failed (attempt %d/3): %v", attempt+1, lastErr))
		time.Sleep(100 * time.Millisecond)
	}

	return lastErr
}

// LogController logs commands instead of sending them. Used for dry
// runs when no bridge URL is configured.
type LogController struct{}

// Start is a no-op.
func (LogController) Start() {}

// Stop is a no-op.
func (LogController) Stop() {}

// CommandOffsets logs the offset command.
func (LogController) CommandOffsets(pan, tilt float64) {
	debugMsg("HEAD", fmt.Sprintf("dry-run offset pan=%.4f tilt=%.4f", pan, tilt))
}

// RequestScan logs the scan request.
func (LogController) RequestScan() {
	debugMsg("HEAD", "dry-run scan request")
}
