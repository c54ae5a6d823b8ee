package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
)

// Manager tracks the active session and records generations against it.
type Manager struct {
	store        *Store
	current      *Session
	defaultModel string
}

func NewManager(store *Store, defaultModel string) *Manager {
	if defaultModel == "" {
		defaultModel = "veo-3"
	}
	return &Manager{
		store:        store,
		defaultModel: defaultModel,
	}
}

func (m *Manager) Current() *Session {
	return m.current
}

func (m *Manager) HasSession() bool {
	return m.current != nil
}

func (m *Manager) StartNew(ctx context.Context, name string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Model:     m.defaultModel,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if _, err := EnsureVideoDir(sess.ID); err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}

	m.current = sess
	return sess, nil
}

func (m *Manager) Load(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	m.current = sess
	return nil
}

func (m *Manager) EnsureSession(ctx context.Context) error {
	if m.current == nil {
		_, err := m.StartNew(ctx, "")
		return err
	}
	return nil
}

// AddGeneration records a dispatched generation against the active session,
// creating one if needed.
func (m *Manager) AddGeneration(ctx context.Context, gen *Generation) error {
	if err := m.EnsureSession(ctx); err != nil {
		return err
	}

	gen.ID = uuid.New().String()
	gen.SessionID = m.current.ID
	gen.Timestamp = time.Now()

	if err := m.store.CreateGeneration(ctx, gen); err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	m.current.UpdatedAt = time.Now()
	if err := m.store.UpdateSession(ctx, m.current); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (m *Manager) History(ctx context.Context) ([]*Generation, error) {
	if m.current == nil {
		return nil, nil
	}
	return m.store.ListGenerations(ctx, m.current.ID)
}

func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.store.ListSessions(ctx)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) RenameSession(ctx context.Context, name string) error {
	if m.current == nil {
		return ErrNoSession
	}
	m.current.Name = name
	m.current.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, m.current)
}

func (m *Manager) SetModel(model string) {
	m.defaultModel = model
	if m.current != nil {
		m.current.Model = model
	}
}

func (m *Manager) GetModel() string {
	if m.current != nil {
		return m.current.Model
	}
	return m.defaultModel
}

// VideoPath returns a fresh collision-free path inside the active session's
// video directory.
func (m *Manager) VideoPath() string {
	if m.current == nil {
		return ""
	}
	dir, _ := VideoDir(m.current.ID)
	return filepath.Join(dir, uuid.New().String()+".mp4")
}

func (m *Manager) GenerationCount(ctx context.Context) (int, error) {
	if m.current == nil {
		return 0, nil
	}
	return m.store.CountGenerations(ctx, m.current.ID)
}

func (m *Manager) GetSessionSpend(ctx context.Context) (*SpendSummary, error) {
	if m.current == nil {
		return &SpendSummary{}, nil
	}
	return m.store.GetSessionSpend(ctx, m.current.ID)
}
