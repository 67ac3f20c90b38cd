package gateway

import (
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the explicit auth context handed to the gateway. Its lifecycle
// is tied to sign-in and sign-out; nothing reads ambient storage.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	role      string
	expiresAt time.Time
	now       func() time.Time
	onSignOut []func()
}

// NewSession returns a signed-out session
func NewSession() *Session {
	return &Session{now: time.Now}
}

// SignIn stores token and the claims decoded from it. The signature is not
// verified here; the API remains the authority on the token's validity.
func (s *Session) SignIn(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("decode session token: %w", err)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["id"].(string)
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID
	s.role = role
	s.expiresAt = expiresAt
	return nil
}

// SignOut clears the session and notifies listeners registered with OnSignOut.
func (s *Session) SignOut() {
	s.mu.Lock()
	wasSignedIn := s.token != ""
	s.token, s.userID, s.role = "", "", ""
	s.expiresAt = time.Time{}
	listeners := append([]func(){}, s.onSignOut...)
	s.mu.Unlock()

	if !wasSignedIn {
		return
	}
	for _, fn := range listeners {
		fn()
	}
}

// OnSignOut registers fn to run after every sign-out of an active session.
func (s *Session) OnSignOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) IsAdmin() bool {
	return s.Role() == models.RoleAdmin
}

// Authenticated reports whether a token is present and not past its expiry.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}
