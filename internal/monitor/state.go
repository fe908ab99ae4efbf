// Package monitor implements the focus-polling loop and cooldown policy.
package monitor

import (
	"sync"
	"time"
)

// State is the monitor's view of the desktop. Single-writer: only the
// monitor loop mutates it. Session handlers read LastValidApp through the
// accessor; they only need the latest value, not a snapshot across fields.
type State struct {
	mu               sync.RWMutex
	previousApp      string
	lastValidApp     string
	lastNotification time.Time // zero value means "never notified"
}

// NewState creates an empty monitor state.
func NewState() *State {
	return &State{}
}

// LastValidApp returns the last focused app that was not in the ignore
// set. Survives transient focus-steals by ignored apps.
func (s *State) LastValidApp() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastValidApp
}

func (s *State) previous() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previousApp
}

func (s *State) setPrevious(app string) {
	s.mu.Lock()
	s.previousApp = app
	s.mu.Unlock()
}

func (s *State) setLastValid(app string) {
	s.mu.Lock()
	s.lastValidApp = app
	s.mu.Unlock()
}

func (s *State) lastNotifiedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastNotification
}

func (s *State) markNotified(t time.Time) {
	s.mu.Lock()
	s.lastNotification = t
	s.mu.Unlock()
}
