package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugMessage is one unified log line.
type DebugMessage struct {
	Timestamp time.Time
	Component string
	Message   string
	SessionID string
}

// DebugWriteTask is a queued session-file write.
type DebugWriteTask struct {
	file    *os.File
	content string
}

// DebugLogger provides unified debug message handling for the console
// and optional per-session log files. Console output is synchronous;
// file writes go through an async queue so logging never stalls the
// control loop.
type DebugLogger struct {
	fileLogging bool
	baseDir     string

	mu            sync.Mutex
	sessionFiles  map[string]*os.File // session ID -> file handle
	writeQueue    chan DebugWriteTask
	stopWorker    chan struct{}
	workerStopped sync.WaitGroup
}

// NewDebugLogger creates the logger. When fileLogging is set, messages
// tagged with a session ID are mirrored into baseDir/<session>.txt.
func NewDebugLogger(fileLogging bool, baseDir string) *DebugLogger {
	dl := &DebugLogger{
		fileLogging:  fileLogging,
		baseDir:      baseDir,
		sessionFiles: make(map[string]*os.File),
		writeQueue:   make(chan DebugWriteTask, 256),
		stopWorker:   make(chan struct{}),
	}

	if fileLogging {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			fmt.Printf("[DEBUG_LOGGER] failed to create %s: %v - file logging disabled\n", baseDir, err)
			dl.fileLogging = false
		}
	}

	dl.workerStopped.Add(1)
	go dl.fileWriteWorker()

	return dl
}

func (dl *DebugLogger) debugMsg(component, message string, sessionID ...string) {
	timestamp := time.Now()

	fmt.Printf("[%s][%s] %s\n", timestamp.Format("15:04:05.000"), component, message)

	currentSession := ""
	if len(sessionID) > 0 && sessionID[0] != "" {
		currentSession = sessionID[0]
	}

	if !dl.fileLogging || currentSession == "" {
		return
	}

	dl.mu.Lock()
	file := dl.getOrCreateSessionFile(currentSession)
	dl.mu.Unlock()
	if file == nil {
		return
	}

	content := fmt.Sprintf("[%s][%s] %s\n", timestamp.Format("15:04:05.000"), component, message)
	select {
	case dl.writeQueue <- DebugWriteTask{file: file, content: content}:
	default:
		// Queue full, drop message to prevent blocking
	}
}

// getOrCreateSessionFile opens the per-session log file. Caller holds
// dl.mu.
func (dl *DebugLogger) getOrCreateSessionFile(sessionID string) *os.File {
	if file, exists := dl.sessionFiles[sessionID]; exists {
		return file
	}

	path := filepath.Join(dl.baseDir, sessionID+".txt")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("[DEBUG_LOGGER] failed to open session file %s: %v\n", path, err)
		return nil
	}

	info, _ := file.Stat()
	if info != nil && info.Size() == 0 {
		fmt.Fprintf(file, "=== TRACKING SESSION %s ===\nStarted: %s\n\n",
			sessionID, time.Now().Format("2006-01-02 15:04:05"))
	}

	dl.sessionFiles[sessionID] = file
	return file
}

// fileWriteWorker handles async session-file writing.
func (dl *DebugLogger) fileWriteWorker() {
	defer dl.workerStopped.Done()

	for {
		select {
		case task := <-dl.writeQueue:
			task.file.WriteString(task.content)

		case <-dl.stopWorker:
			for len(dl.writeQueue) > 0 {
				task := <-dl.writeQueue
				task.file.WriteString(task.content)
			}
			return
		}
	}
}

// Close drains the write queue and closes session files.
func (dl *DebugLogger) Close() {
	close(dl.stopWorker)
	dl.workerStopped.Wait()

	dl.mu.Lock()
	defer dl.mu.Unlock()
	for _, file := range dl.sessionFiles {
		file.Close()
	}
	dl.sessionFiles = make(map[string]*os.File)
}
