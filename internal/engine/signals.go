package engine

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalManager watches the .squad/signals directory for stop and pause
// files, letting an operator halt running tasks from outside the process.
type SignalManager struct {
	squadDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalManager creates a signal manager under workspaceDir. The
// fsnotify watcher is best effort; if it cannot be started the manager
// falls back to stat checks on every query.
func NewSignalManager(workspaceDir string) (*SignalManager, error) {
	squadDir := filepath.Join(workspaceDir, ".squad")
	signalsDir := filepath.Join(squadDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		squadDir: squadDir,
		done:     make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sm, nil
	}
	sm.watcher = watcher

	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		sm.watcher = nil
		return sm, nil
	}

	go sm.watchSignals()

	return sm, nil
}

func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sm.mu.Lock()
			switch filepath.Base(event.Name) {
			case "stop":
				sm.stopSignal = true
			case "pause":
				sm.pauseSignal = true
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// Keep watching; stat fallback covers missed events.
		}
	}
}

// ShouldStop reports whether a stop signal has been received.
func (sm *SignalManager) ShouldStop() bool {
	sm.checkFile("stop")
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stopSignal
}

// ShouldPause reports whether a pause signal has been received.
func (sm *SignalManager) ShouldPause() bool {
	sm.checkFile("pause")
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.pauseSignal
}

// checkFile stats the signal file directly in case the watcher missed it.
func (sm *SignalManager) checkFile(name string) {
	path := filepath.Join(sm.squadDir, "signals", name)
	if _, err := os.Stat(path); err != nil {
		return
	}
	sm.mu.Lock()
	switch name {
	case "stop":
		sm.stopSignal = true
	case "pause":
		sm.pauseSignal = true
	}
	sm.mu.Unlock()
}

// SendStop creates a stop signal file.
func (sm *SignalManager) SendStop() error {
	path := filepath.Join(sm.squadDir, "signals", "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (sm *SignalManager) SendPause() error {
	path := filepath.Join(sm.squadDir, "signals", "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stopSignal = false
	sm.pauseSignal = false

	os.Remove(filepath.Join(sm.squadDir, "signals", "stop"))
	os.Remove(filepath.Join(sm.squadDir, "signals", "pause"))
}

// SquadDir returns the path to the .squad directory.
func (sm *SignalManager) SquadDir() string {
	return sm.squadDir
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
