// Package session implements the durable chat session lifecycle: creation
// with an atomic thread binding, lookup by session id or Slack thread,
// ordered message appends and the client-visible debug log.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/core/cache"
	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/pkg/encryption"
)

const (
	// DefaultTTL is the session inactivity TTL (24 hours). Every write
	// refreshes it, so active sessions never expire mid-conversation.
	DefaultTTL = 24 * time.Hour

	// DefaultDebugLogMax caps the per-session debug log; the oldest lines
	// are evicted first.
	DefaultDebugLogMax = 200

	// lockStripes is the size of the per-session mutex table that
	// serialises read-modify-write operations within this process.
	lockStripes = 64
)

// ErrSessionNotFound is returned by Append when the session does not exist.
// Most callers log and drop; the relay endpoint surfaces it as a 404.
var ErrSessionNotFound = errors.New("session not found")

// Service provides session lifecycle management.
type Service interface {
	// Create writes a new session and, when threadID is non-empty, its
	// thread-binding index entry in one transactional write. If the session
	// already exists with a bound thread, the existing session is returned
	// unchanged: bindings are first-write-wins and never rebound.
	Create(ctx context.Context, sessionID, threadID string) (*models.Session, error)

	// Get retrieves a session. Returns (nil, nil) when absent.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// GetByThread resolves a Slack thread id to its session. Returns
	// (nil, nil) when the index entry or the session record is missing.
	GetByThread(ctx context.Context, threadID string) (*models.Session, error)

	// Append adds a message to the transcript, assigning the timestamp (and
	// id, when empty) at append time, and persists with a refreshed TTL.
	// Returns ErrSessionNotFound when the session does not exist.
	Append(ctx context.Context, sessionID string, msg models.Message) (*models.Message, error)
}

// Config holds the configuration for the session service.
type Config struct {
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration

	// RefreshTTLOnRead makes plain reads rewrite the session record (and so
	// refresh its TTL), matching the store-backed original. When false,
	// reads are read-only and only writes extend the session's life.
	RefreshTTLOnRead bool

	DebugLogMax int
	Logger      zerolog.Logger
}

type service struct {
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
	refreshRead bool
	debugMax    int
	log         zerolog.Logger

	locks [lockStripes]sync.Mutex
}

// NewService creates a new session service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	debugMax := cfg.DebugLogMax
	if debugMax == 0 {
		debugMax = DefaultDebugLogMax
	}

	return &service{
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
		refreshRead: cfg.RefreshTTLOnRead,
		debugMax:    debugMax,
		log:         cfg.Logger,
	}, nil
}

// Create writes a new session and its thread binding together.
func (s *service) Create(ctx context.Context, sessionID, threadID string) (*models.Session, error) {
	// Binding an existing session rewrites the whole record; serialise with
	// appends on the same id so neither write drops the other.
	lock := &s.locks[stripe(sessionID)]
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.SlackThreadID != "" {
			// Binding is immutable; a second create is an idempotent no-op.
			s.log.Warn().
				Str("session_id", sessionID).
				Str("bound_thread", existing.SlackThreadID).
				Str("requested_thread", threadID).
				Msg("create ignored, session already thread-bound")
			return existing, nil
		}
		if threadID == "" {
			return existing, nil
		}
		// First thread write on an existing unbound session.
		existing.SlackThreadID = threadID
		existing.LastActivity = time.Now().UTC()
		s.appendDebug(existing, "thread_bound", threadID)
		if err := s.storeWithBinding(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	sess := models.NewSession(sessionID, threadID)
	s.appendDebug(sess, "session_created", threadID)
	if err := s.storeWithBinding(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a session by id.
func (s *service) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if !s.refreshRead {
		return s.load(ctx, sessionID)
	}

	// A refreshing read writes the whole record back; take the per-session
	// lock so it cannot overwrite a concurrent append.
	lock := &s.locks[stripe(sessionID)]
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}

	s.appendDebug(sess, "session_read", "")
	if err := s.store(ctx, sess); err != nil {
		// A failed refresh must not fail the read.
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh session on read")
	}
	return sess, nil
}

// GetByThread resolves the thread index and delegates to Get.
func (s *service) GetByThread(ctx context.Context, threadID string) (*models.Session, error) {
	raw, err := s.cacheClient.Get(ctx, models.ThreadKey(threadID))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thread binding: %w", err)
	}
	if raw == nil {
		s.log.Debug().Str("thread_id", threadID).Msg("no session bound to thread")
		return nil, nil
	}

	sess, err := s.Get(ctx, string(raw))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Dangling index entry; treat as absent rather than erroring.
		s.log.Warn().Str("thread_id", threadID).Str("session_id", string(raw)).
			Msg("thread binding points to missing session")
	}
	return sess, nil
}

// Append adds a message to the transcript.
func (s *service) Append(ctx context.Context, sessionID string, msg models.Message) (*models.Message, error) {
	// Appends read-modify-write the whole record; serialise them per
	// session so concurrent writers cannot drop each other's messages.
	lock := &s.locks[stripe(sessionID)]
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		s.log.Info().Str("session_id", sessionID).Msg("append dropped, session not found")
		return nil, ErrSessionNotFound
	}

	// Timestamps are assigned here, not by the caller, to keep the
	// transcript monotonic.
	now := time.Now().UTC()
	msg.Timestamp = now
	if msg.ID == "" {
		msg.ID = models.MessageID(msg.Sender, now)
	}

	sess.Messages = append(sess.Messages, msg)
	sess.LastActivity = now
	s.appendDebug(sess, "message_added", msg.ID)

	if err := s.store(ctx, sess); err != nil {
		return nil, err
	}
	return &msg, nil
}

// load reads and decodes a session record. Corrupt or undecryptable entries
// are deleted and reported as absent.
func (s *service) load(ctx context.Context, sessionID string) (*models.Session, error) {
	key := models.SessionKey(sessionID)

	encrypted, err := s.cacheClient.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get session from store: %w", err)
	}
	if encrypted == nil {
		return nil, nil
	}

	decrypted, err := s.encryptor.Decrypt(string(encrypted))
	if err != nil {
		// Key may have changed; drop the stale entry.
		_, _ = s.cacheClient.Delete(ctx, key)
		s.log.Warn().Str("session_id", sessionID).Msg("dropped undecryptable session record")
		return nil, nil
	}

	var sess models.Session
	if err := json.Unmarshal(decrypted, &sess); err != nil {
		_, _ = s.cacheClient.Delete(ctx, key)
		s.log.Warn().Str("session_id", sessionID).Msg("dropped corrupt session record")
		return nil, nil
	}
	return &sess, nil
}

// store persists a session record with a refreshed TTL.
func (s *service) store(ctx context.Context, sess *models.Session) error {
	encrypted, err := s.encode(sess)
	if err != nil {
		return err
	}
	if err := s.cacheClient.Set(ctx, models.SessionKey(sess.SessionID), encrypted, s.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// storeWithBinding persists the session record and its thread-binding index
// entry in one transactional write, session record first so a reader can
// never observe a binding pointing at a missing session.
func (s *service) storeWithBinding(ctx context.Context, sess *models.Session) error {
	encrypted, err := s.encode(sess)
	if err != nil {
		return err
	}

	entries := []cache.Entry{
		{Key: models.SessionKey(sess.SessionID), Value: encrypted, TTL: s.ttl},
	}
	if sess.SlackThreadID != "" {
		entries = append(entries, cache.Entry{
			Key:   models.ThreadKey(sess.SlackThreadID),
			Value: []byte(sess.SessionID),
			TTL:   s.ttl,
		})
	}

	if err := s.cacheClient.SetMulti(ctx, entries); err != nil {
		return fmt.Errorf("failed to store session with binding: %w", err)
	}
	return nil
}

func (s *service) encode(sess *models.Session) ([]byte, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt session: %w", err)
	}
	return []byte(encrypted), nil
}

// appendDebug adds a diagnostic line, evicting the oldest beyond the cap.
func (s *service) appendDebug(sess *models.Session, event, detail string) {
	line := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), event)
	if detail != "" {
		line += ": " + detail
	}
	sess.DebugLog = append(sess.DebugLog, line)
	if len(sess.DebugLog) > s.debugMax {
		sess.DebugLog = sess.DebugLog[len(sess.DebugLog)-s.debugMax:]
	}
}

// stripe maps a session id onto the mutex table.
func stripe(sessionID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return h.Sum32() % lockStripes
}
