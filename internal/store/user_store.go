// Package store holds the account collection and the active session.
package store

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// TimestampLayout renders notification times the way the ordering UI displays them.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// PasswordMatcher compares a stored credential with a submitted one.
type PasswordMatcher interface {
	Matches(stored, plain string) bool
}

type plainMatcher struct{}

func (plainMatcher) Matches(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

// Options configures a UserStore. Zero values fall back to defaults.
type Options struct {
	KeyPrefix string
	Passwords PasswordMatcher
	// AdminSeed is the account created when no users are persisted. Its ID is
	// always forced to domain.AdminID.
	AdminSeed domain.User
	Clock     func() time.Time
	NewID     func() string
	Logger    *zap.Logger
}

// UserStore owns every account plus the id of the active session. All reads
// return copies; the session record is always derived from the collection.
type UserStore struct {
	mu        sync.RWMutex
	users     []domain.User
	sessionID string

	kv         persistence.KV
	usersKey   string
	currentKey string
	passwords  PasswordMatcher
	seed       domain.User
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// DefaultAdmin returns the built-in administrator account.
func DefaultAdmin() domain.User {
	return domain.User{
		ID:            domain.AdminID,
		Name:          "System Admin",
		Email:         "admin@gmail.com",
		Phone:         "000-000-0000",
		Password:      "admin123",
		Role:          domain.RoleAdmin,
		Status:        domain.UserStatusActive,
		Notifications: []domain.Notification{},
		Preferences:   domain.DefaultPreferences(),
	}
}

// New builds an empty store bound to kv. Call Load before use.
func New(kv persistence.KV, opts Options) *UserStore {
	s := &UserStore{
		kv:         kv,
		usersKey:   opts.KeyPrefix + "users",
		currentKey: opts.KeyPrefix + "current_user",
		passwords:  opts.Passwords,
		seed:       opts.AdminSeed,
		now:        opts.Clock,
		newID:      opts.NewID,
		logger:     opts.Logger,
	}
	if s.passwords == nil {
		s.passwords = plainMatcher{}
	}
	if s.seed.Email == "" {
		s.seed = DefaultAdmin()
	}
	s.seed.ID = domain.AdminID
	s.seed.Role = domain.RoleAdmin
	s.seed.Status = domain.UserStatusActive
	s.seed.SuspensionEnd = ""
	s.seed.Notifications = []domain.Notification{}
	if s.seed.Preferences == (domain.UserPreferences{}) {
		s.seed.Preferences = domain.DefaultPreferences()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Users returns a copy of every account in insertion order.
func (s *UserStore) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	return out
}

// User looks an account up by id.
func (s *UserStore) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.users[i].Clone(), true
	}
	return domain.User{}, false
}

// CurrentUser returns the active session's account, if any.
func (s *UserStore) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sessionID == "" {
		return domain.User{}, false
	}
	if i := s.indexOf(s.sessionID); i >= 0 {
		return s.users[i].Clone(), true
	}
	return domain.User{}, false
}

// Login makes the first account whose email and password both match the active
// session. On failure the session is left as it was.
func (s *UserStore) Login(email, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && s.passwords.Matches(u.Password, password) {
			s.sessionID = u.ID
			return true
		}
	}
	return false
}

// Register appends a new customer and makes it the active session. Duplicate
// emails are accepted; login resolves them by insertion order.
func (s *UserStore) Register(name, email, phone, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.newAccount(domain.NewUser{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: password,
		Role:     domain.RoleCustomer,
	})
	s.users = append(s.users, u)
	s.sessionID = u.ID
	return u.Clone()
}

// AddUser appends an account created by an administrator. The session is not touched.
func (s *UserStore) AddUser(nu domain.NewUser) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nu.Role == "" {
		nu.Role = domain.RoleCustomer
	}
	u := s.newAccount(nu)
	s.users = append(s.users, u)
	return u.Clone()
}

// UpdateUser shallow-merges patch into the account. Values are not validated.
func (s *UserStore) UpdateUser(id string, patch domain.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		patch.Apply(&s.users[i])
	}
}

// DeleteUser removes an account. The seeded admin cannot be removed. Deleting
// the session's account logs out.
func (s *UserStore) DeleteUser(id string) {
	if id == domain.AdminID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	if s.sessionID == id {
		s.sessionID = ""
	}
}

// SuspensionMessage is the notice prepended by SuspendUser.
func SuspensionMessage(until, reason string) string {
	return fmt.Sprintf("Action Taken: Account suspended until %s. Reason: %s", until, reason)
}

// LiftMessage is the notice prepended by LiftSuspension.
const LiftMessage = "Good news! Your suspension has been lifted. Welcome back."

// SuspendUser flags the account suspended until the given time and notifies it.
// until is stored as given; it is not parsed or checked against the clock.
func (s *UserStore) SuspendUser(id, until, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	u := &s.users[i]
	u.Status = domain.UserStatusSuspended
	u.SuspensionEnd = until
	s.prepend(u, SuspensionMessage(until, reason))
}

// LiftSuspension reactivates the account and notifies it.
func (s *UserStore) LiftSuspension(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	u := &s.users[i]
	u.Status = domain.UserStatusActive
	u.SuspensionEnd = ""
	s.prepend(u, LiftMessage)
}

// AddNotification prepends an unread notification to the account.
func (s *UserStore) AddNotification(userID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(userID); i >= 0 {
		s.prepend(&s.users[i], message)
	}
}

// MarkNotificationsRead marks every notification of the session's account read.
func (s *UserStore) MarkNotificationsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == "" {
		return
	}
	if i := s.indexOf(s.sessionID); i >= 0 {
		s.users[i].MarkNotificationsRead()
	}
}

// UpdateSessionUser runs fn on the session's account under the store lock.
// Nothing happens, and false is returned, unless the session belongs to id.
func (s *UserStore) UpdateSessionUser(id string, fn func(*domain.User)) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.sessionID != id {
		return domain.User{}, false
	}
	i := s.indexOf(id)
	if i < 0 {
		return domain.User{}, false
	}
	fn(&s.users[i])
	return s.users[i].Clone(), true
}

// Logout clears the active session.
func (s *UserStore) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
}

func (s *UserStore) newAccount(nu domain.NewUser) domain.User {
	return domain.User{
		ID:            s.newID(),
		Name:          nu.Name,
		Email:         nu.Email,
		Phone:         nu.Phone,
		Password:      nu.Password,
		Role:          nu.Role,
		Status:        domain.UserStatusActive,
		Notifications: []domain.Notification{},
		Preferences:   domain.DefaultPreferences(),
	}
}

// prepend must be called with mu held.
func (s *UserStore) prepend(u *domain.User, message string) {
	n := domain.Notification{
		ID:        s.newID(),
		Message:   message,
		Timestamp: s.now().Format(TimestampLayout),
		Read:      false,
	}
	notifs := make([]domain.Notification, 0, len(u.Notifications)+1)
	notifs = append(notifs, n)
	u.Notifications = append(notifs, u.Notifications...)
}

func (s *UserStore) indexOf(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}
