// Package upload manages photo upload sessions as an explicit
// resource-acquisition state machine. Every session owns at most one temp
// file, and every exit path (completion, abort, expiry) releases it, so
// an interrupted upload can never leak a file handle or orphan bytes on
// disk.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of one upload session.
//
//	receiving -> stored -> attached
//	receiving|stored -> aborted
//	receiving|stored -> expired (janitor)
type State string

const (
	StateReceiving State = "receiving"
	StateStored    State = "stored"
	StateAttached  State = "attached"
	StateAborted   State = "aborted"
	StateExpired   State = "expired"
)

var (
	ErrSessionNotFound = errors.New("upload session not found")
	ErrBadState        = errors.New("upload session in wrong state")
	ErrTooLarge        = errors.New("upload too large")
)

const maxUploadBytes = 10 << 20

var transitions = map[State]map[State]bool{
	StateReceiving: {StateStored: true, StateAborted: true, StateExpired: true},
	StateStored:    {StateAttached: true, StateAborted: true, StateExpired: true},
}

// Session is one in-flight photo upload.
type Session struct {
	ID      string
	state   State
	file    *os.File
	path    string
	written int64
	started time.Time
}

// Manager owns all live sessions and their backing files.
type Manager struct {
	mu       sync.Mutex
	dir      string
	ttl      time.Duration
	sessions map[string]*Session
}

func NewManager(dir string, ttl time.Duration) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Manager{
		dir:      dir,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}, nil
}

// Begin opens a new session with a backing temp file.
func (m *Manager) Begin() (*Session, error) {
	id := uuid.NewString()
	f, err := os.CreateTemp(m.dir, "upload-*.part")
	if err != nil {
		return nil, fmt.Errorf("create upload temp file: %w", err)
	}

	s := &Session{
		ID:      id,
		state:   StateReceiving,
		file:    f,
		path:    f.Name(),
		started: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Receive appends body bytes to a receiving session.
func (m *Manager) Receive(id string, body io.Reader) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.state != StateReceiving {
		return fmt.Errorf("%w: %s is %s", ErrBadState, id, s.state)
	}

	n, err := io.Copy(s.file, io.LimitReader(body, maxUploadBytes-s.written+1))
	s.written += n
	if err != nil {
		m.releaseLocked(s, StateAborted)
		return fmt.Errorf("write upload body: %w", err)
	}
	if s.written > maxUploadBytes {
		m.releaseLocked(s, StateAborted)
		return ErrTooLarge
	}
	return nil
}

// Complete seals the upload: the temp file becomes a stored photo and the
// session yields the URL path to attach to a record.
func (m *Manager) Complete(id string) (string, error) {
	s, err := m.get(id)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !transitions[s.state][StateStored] {
		return "", fmt.Errorf("%w: %s is %s", ErrBadState, id, s.state)
	}
	if s.written == 0 {
		m.releaseLocked(s, StateAborted)
		return "", fmt.Errorf("complete upload: empty body")
	}

	if err := s.file.Close(); err != nil {
		m.releaseLocked(s, StateAborted)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	s.file = nil

	final := filepath.Join(m.dir, id+".photo")
	if err := os.Rename(s.path, final); err != nil {
		m.releaseLocked(s, StateAborted)
		return "", fmt.Errorf("store upload: %w", err)
	}
	s.path = final
	s.state = StateStored
	return "/photos/" + id, nil
}

// Attach marks a stored photo as referenced by a record; the file now
// belongs to the record and leaves the session's custody.
func (m *Manager) Attach(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !transitions[s.state][StateAttached] {
		return fmt.Errorf("%w: %s is %s", ErrBadState, id, s.state)
	}
	s.state = StateAttached
	delete(m.sessions, id)
	return nil
}

// Abort tears the session down and removes its file.
func (m *Manager) Abort(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !transitions[s.state][StateAborted] {
		return fmt.Errorf("%w: %s is %s", ErrBadState, id, s.state)
	}
	m.releaseLocked(s, StateAborted)
	return nil
}

// PhotoPath resolves a stored photo ID to its file, for serving.
func (m *Manager) PhotoPath(photoID string) string {
	return filepath.Join(m.dir, photoID+".photo")
}

// State reports a session's current state.
func (m *Manager) State(id string) (State, error) {
	s, err := m.get(id)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.state, nil
}

// Sweep expires sessions older than the TTL and reclaims their files.
// Returns the number of sessions expired.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	expired := 0
	for _, s := range m.sessions {
		if s.started.Before(cutoff) && transitions[s.state][StateExpired] {
			m.releaseLocked(s, StateExpired)
			expired++
		}
	}
	return expired
}

// StartJanitor sweeps periodically until done is closed.
func (m *Manager) StartJanitor(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					slog.Info("Expired upload sessions", "component", "upload", "count", n)
				}
			}
		}
	}()
}

// releaseLocked is the single teardown path: close the handle, remove the
// file, record the terminal state, forget the session. Callers hold m.mu.
func (m *Manager) releaseLocked(s *Session, terminal State) {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove upload file", "component", "upload", "path", s.path, "error", err)
		}
		s.path = ""
	}
	s.state = terminal
	delete(m.sessions, s.ID)
}
