package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/RonaldsonBellande/humanoid-robot-demos/detection"
	"github.com/RonaldsonBellande/humanoid-robot-demos/head"
	"github.com/RonaldsonBellande/humanoid-robot-demos/tracking"
)

var (
	configPath  = flag.String("config", "headtrack.yml", "Path to the YAML config file")
	inputSource = flag.String("input", "", "Video capture source (device index, file or URL); empty disables detection")
	headURL     = flag.String("head-url", "", "Head bridge base URL (e.g. http://robot:8642); empty runs commands in dry-run mode")
	serverPort  = flag.Int("port", 0, "HTTP status/command port (overrides config)")
	verbose     = flag.Bool("verbose", false, "Log every control tick instead of state changes only")
	debugFiles  = flag.Bool("debug-files", false, "Mirror session logs into per-session files under ./debug")
	noSearch    = flag.Bool("no-search", false, "Disable the search sweep request on target loss")
	autoStart   = flag.Bool("start", false, "Arm tracking immediately instead of waiting for a start command")
)

var debugLogger *DebugLogger

func debugMsg(component, message string, sessionID ...string) {
	if debugLogger != nil {
		debugLogger.debugMsg(component, message, sessionID...)
	}
}

func debugMsgVerbose(component, message string, sessionID ...string) {
	if *verbose {
		debugMsg(component, message, sessionID...)
	}
}

func main() {
	flag.Parse()

	debugLogger = NewDebugLogger(*debugFiles, "debug")
	defer debugLogger.Close()

	tracking.SetDebugFunction(debugMsg)
	tracking.SetDebugVerboseFunction(debugMsgVerbose)
	head.SetDebugFunction(debugMsg)
	detection.SetDebugFunction(debugMsg)

	cfg, err := LoadAppConfig(*configPath)
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}
	if *noSearch {
		cfg.Tracker.UseSearch = false
	}
	if *serverPort != 0 {
		cfg.Server.Port = *serverPort
	}
	if *headURL != "" {
		cfg.Head.BridgeURL = *headURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var controller head.Controller
	if cfg.Head.BridgeURL != "" {
		controller = head.NewHTTPController(cfg.Head.BridgeURL,
			time.Duration(cfg.Head.RateLimitMS)*time.Millisecond)
		debugMsg("MAIN", fmt.Sprintf("head bridge: %s", cfg.Head.BridgeURL))
	} else {
		controller = head.LogController{}
		debugMsg("MAIN", "no head bridge configured - running in dry-run mode")
	}
	controller.Start()
	defer controller.Stop()

	tracker := tracking.New(cfg.Tracking(), controller, controller, nil)
	if *autoStart {
		tracker.Arm()
	}

	// Detection is optional; without an input source the control loop
	// still runs and answers operator commands.
	var observations <-chan []tracking.Observation
	if *inputSource != "" {
		var detector detection.Source
		detector, err = detection.NewBallDetector(*inputSource, cfg.Detection())
		if err != nil {
			fmt.Printf("detector error: %v\n", err)
			os.Exit(1)
		}
		defer detector.Close()
		observations = detector.Observations()

		go func() {
			if err := detector.Run(ctx); err != nil {
				debugMsg("MAIN", fmt.Sprintf("detector stopped: %v", err))
				stop()
			}
		}()
		debugMsg("MAIN", fmt.Sprintf("detection running on %q", *inputSource))
	}

	commands := make(chan string, 8)
	stats := NewTickStats()

	// latestSnapshot is written from the dispatch goroutine after every
	// tick and read by the HTTP handler.
	var latestSnapshot atomic.Value
	latestSnapshot.Store(tracker.Snapshot())

	runner := tracking.NewRunner(tracker, observations, commands,
		cfg.Tracking().NominalPeriod,
		func(status tracking.Status, elapsed time.Duration) {
			stats.Record(status, elapsed)
			latestSnapshot.Store(tracker.Snapshot())
		})

	go reportLoop(ctx, stats)

	srv := statusServer(cfg.Server.Port, &latestSnapshot, commands)
	go func() {
		debugMsg("MAIN", fmt.Sprintf("status server on :%d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			debugMsg("MAIN", fmt.Sprintf("status server failed: %v", err))
			stop()
		}
	}()

	runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	debugMsg("MAIN", "shutdown complete")
}

// reportLoop prints a performance summary every 15 seconds.
func reportLoop(ctx context.Context, stats *TickStats) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			debugMsg("PERF", stats.ReportAndReset())
		}
	}
}

// statusServer exposes the tracker snapshot and the operator command
// endpoint.
func statusServer(port int, snapshot *atomic.Value, commands chan<- string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshot.Load())
	})

	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Command == "" {
			http.Error(w, "expected {\"command\": \"...\"}", http.StatusBadRequest)
			return
		}
		select {
		case commands <- body.Command:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "command queue full", http.StatusServiceUnavailable)
		}
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
