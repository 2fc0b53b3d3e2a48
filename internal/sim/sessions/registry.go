// Package sessions tracks connected players and delivers outbound messages to them.
package sessions

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"homecraft.ai/internal/sim/home"
)

var (
	ErrAlreadyConnected = errors.New("account already connected")
	ErrNameTaken        = errors.New("character name in use")
)

// Session is one connected client. Out is drained by the transport writer.
type Session struct {
	ID        string
	AccountID int64
	Name      string
	Out       chan []byte

	// OnOverflow is called once when Out is full. The transport closes the connection
	// so the client reconnects and gets a fresh snapshot instead of a gapped stream.
	OnOverflow func()
	overflow   sync.Once
}

func (s *Session) Ref() home.PlayerRef {
	return home.PlayerRef{SessionID: s.ID, AccountID: s.AccountID, Name: s.Name}
}

func NewSessionID() string { return "s_" + uuid.NewString() }

// Registry implements home.Directory and home.Notifier.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	byAccount map[int64]string
	byName    map[string]int64

	log *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		byID:      map[string]*Session{},
		byAccount: map[int64]string{},
		byName:    map[string]int64{},
		log:       logger,
	}
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds s. An account has at most one session and names are unique
// regardless of case.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byAccount[s.AccountID]; ok {
		return ErrAlreadyConnected
	}
	key := nameKey(s.Name)
	if owner, ok := r.byName[key]; ok && owner != s.AccountID {
		return ErrNameTaken
	}
	r.byID[s.ID] = s
	r.byAccount[s.AccountID] = s.ID
	r.byName[key] = s.AccountID
	return nil
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byID[id]
	if s == nil {
		return
	}
	delete(r.byID, id)
	delete(r.byAccount, s.AccountID)
	delete(r.byName, nameKey(s.Name))
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) SessionByAccount(account int64) (home.PlayerRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAccount[account]
	if !ok {
		return home.PlayerRef{}, false
	}
	return r.byID[id].Ref(), true
}

func (r *Registry) AccountByName(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[nameKey(name)]
	return id, ok
}

// Send encodes msg as JSON and queues it without blocking. Raw []byte is queued as is.
func (r *Registry) Send(sessionID string, msg any) {
	r.mu.RLock()
	s := r.byID[sessionID]
	r.mu.RUnlock()
	if s == nil {
		return
	}
	b, ok := msg.([]byte)
	if !ok {
		var err error
		if b, err = json.Marshal(msg); err != nil {
			r.log.Printf("encode %T for %s: %v", msg, sessionID, err)
			return
		}
	}
	select {
	case s.Out <- b:
	default:
		s.overflow.Do(func() {
			r.log.Printf("session %s queue full, dropping connection", sessionID)
			if s.OnOverflow != nil {
				s.OnOverflow()
			}
		})
	}
}
