package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hayasaka/p-tavern/internal/model/asset"
	"github.com/hayasaka/p-tavern/internal/model/chat"
	"github.com/hayasaka/p-tavern/internal/model/persona"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAssetRequired   = errors.New("no asset uploaded for this session")
	ErrPersonaExists   = errors.New("persona already created for this asset")
	ErrPersonaRequired = errors.New("no persona created for this session")
)

// Service is the session state store: every interactive session owns one
// isolated state record, mutated only through the methods below.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
}

// NewService bootstraps the in-memory store. State lives for the duration
// of one interactive session and is never persisted.
func NewService() *Service {
	return &Service{sessions: make(map[string]*chat.Session)}
}

// Create provisions a session with every field at its empty default.
func (s *Service) Create(_ context.Context) (chat.Session, error) {
	session := &chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return *session, nil
}

// Get returns a snapshot of the session record.
func (s *Service) Get(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return *session, nil
}

// AttachAsset records a new upload. When the asset identity differs from
// the last-seen one (including the first upload), the persona, portrait,
// conversation, and transcript are all invalidated together before the new
// asset is stored. A re-upload with the same identity changes nothing.
func (s *Service) AttachAsset(_ context.Context, sessionID string, a *asset.Asset) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}

	// Identity comparison only applies once an asset is present; a fresh
	// session's zero AssetID must never swallow the first upload.
	if session.Asset != nil && session.AssetID == a.Identity {
		return false, nil
	}

	invalidate(session)
	session.Asset = a
	session.AssetID = a.Identity
	return true, nil
}

// invalidate resets every asset-derived field as one unit. Callers hold
// the write lock.
func invalidate(session *chat.Session) {
	session.Asset = nil
	session.AssetID = ""
	session.Persona = nil
	session.Portrait = nil
	session.Conversation = nil
	session.Transcript = nil
}

// SetPersona installs the synthesized persona, its portrait, the seeded
// conversation handle, and a single-greeting transcript in one step. The
// transition is gated: an asset must be present and no persona may exist
// yet, so it fires exactly once per asset lifecycle.
func (s *Service) SetPersona(_ context.Context, sessionID string, record persona.Record, portrait []byte, conv chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Asset == nil {
		return ErrAssetRequired
	}
	if session.Persona != nil {
		return ErrPersonaExists
	}

	session.Persona = &record
	session.Portrait = portrait
	session.Conversation = conv
	session.Transcript = []chat.Message{{
		Role:      chat.RoleModel,
		Content:   persona.Greeting(record.Name),
		CreatedAt: time.Now().UTC(),
	}}
	return nil
}

// AppendMessage adds one turn to the transcript. Turns only exist while a
// persona is active.
func (s *Service) AppendMessage(_ context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Persona == nil {
		return ErrPersonaRequired
	}

	session.Transcript = append(session.Transcript, chat.Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Transcript returns a copy of the stored turns.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(session.Transcript))
	copy(copied, session.Transcript)
	return copied, nil
}

// ResetTranscript clears the transcript back to a single fresh greeting.
// The persona and the model-side conversation handle survive the reset,
// so conversational context persists. Without a persona this is a no-op.
func (s *Service) ResetTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Persona == nil {
		copied := make([]chat.Message, len(session.Transcript))
		copy(copied, session.Transcript)
		return copied, nil
	}

	session.Transcript = []chat.Message{{
		Role:      chat.RoleModel,
		Content:   persona.Greeting(session.Persona.Name),
		CreatedAt: time.Now().UTC(),
	}}

	copied := make([]chat.Message, 1)
	copy(copied, session.Transcript)
	return copied, nil
}

// Conversation returns the active chat handle for a session.
func (s *Service) Conversation(_ context.Context, sessionID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Conversation == nil {
		return nil, ErrPersonaRequired
	}
	return session.Conversation, nil
}

// Persona returns the active persona record for a session.
func (s *Service) Persona(_ context.Context, sessionID string) (persona.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return persona.Record{}, ErrSessionNotFound
	}
	if session.Persona == nil {
		return persona.Record{}, ErrPersonaRequired
	}
	return *session.Persona, nil
}

// Portrait returns the encoded crop stored for the session's image asset.
func (s *Service) Portrait(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Portrait, nil
}

// Asset returns the current upload for a session, if any.
func (s *Service) Asset(_ context.Context, sessionID string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Asset == nil {
		return nil, ErrAssetRequired
	}
	return session.Asset, nil
}
