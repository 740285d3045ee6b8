// Package session keeps per-visitor state in a signed, encrypted cookie.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/icco/mango/lib/config"
)

var (
	// ErrCSRFMissing means the request carried no token or the session has none.
	ErrCSRFMissing = errors.New("csrf token missing")
	// ErrCSRFInvalid means the request token does not match the session token.
	ErrCSRFInvalid = errors.New("csrf token mismatch")
)

const (
	tokenBytes     = 32
	minTokenLength = 16
)

// Session is the cookie payload.
type Session struct {
	ID   uuid.UUID `json:"id"`
	CSRF string    `json:"csrf"`
}

// Store encodes sessions into cookies.
type Store struct {
	codec  *securecookie.SecureCookie
	name   string
	secure bool
	maxAge time.Duration
}

// NewStore builds a Store from cfg. Empty keys are replaced with random ones,
// so sessions do not survive a restart.
func NewStore(cfg config.SessionConfig) (*Store, error) {
	hashKey, err := key(cfg.HashKey, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	blockKey, err := key(cfg.BlockKey, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid session block key: %w", err)
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	if cfg.MaxAge > 0 {
		codec.MaxAge(int(cfg.MaxAge.Seconds()))
	}

	return &Store{
		codec:  codec,
		name:   cfg.CookieName,
		secure: cfg.Secure,
		maxAge: cfg.MaxAge,
	}, nil
}

func key(hexKey string, size int) ([]byte, error) {
	if hexKey == "" {
		return securecookie.GenerateRandomKey(size), nil
	}
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("key must decode to %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// Load returns the session for r, creating one and setting its cookie on w
// when the request has none or it cannot be decoded. A session whose token is
// missing or too short gets a fresh token.
func (s *Store) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess := &Session{}
	if c, err := r.Cookie(s.name); err == nil {
		if err := s.codec.Decode(s.name, c.Value, sess); err != nil {
			sess = &Session{}
		}
	}

	if sess.ID != uuid.Nil && len(sess.CSRF) >= minTokenLength {
		return sess, nil
	}

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	sess.CSRF = token

	if err := s.Save(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get decodes the session from r without creating one.
func (s *Store) Get(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(s.name)
	if err != nil {
		return nil, false
	}
	sess := &Session{}
	if err := s.codec.Decode(s.name, c.Value, sess); err != nil {
		return nil, false
	}
	return sess, true
}

// Save writes sess to w as a cookie.
func (s *Store) Save(w http.ResponseWriter, sess *Session) error {
	encoded, err := s.codec.Encode(s.name, sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     s.name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.maxAge > 0 {
		cookie.MaxAge = int(s.maxAge.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Verify checks token against the CSRF token of the session carried by r.
func (s *Store) Verify(r *http.Request, token string) error {
	sess, ok := s.Get(r)
	if !ok || sess.CSRF == "" || token == "" {
		return ErrCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(sess.CSRF), []byte(token)) != 1 {
		return ErrCSRFInvalid
	}
	return nil
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
