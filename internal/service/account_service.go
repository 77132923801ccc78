package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/store"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountService runs store operations, persists the snapshot after each
// mutation, and publishes the resulting events.
type AccountService struct {
	store      *store.UserStore
	passwords  auth.PasswordPolicy
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	Store      *store.UserStore
	Passwords  auth.PasswordPolicy
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Session is returned by login and registration.
type Session struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.PlaintextPolicy{}
	}
	return &AccountService{
		store:      deps.Store,
		passwords:  passwords,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates by email and password and starts the session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	if !s.store.Login(email, password) {
		s.logger.Info("login rejected", zap.String("email", email))
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := s.persist(ctx, "login"); err != nil {
		return nil, err
	}
	user, _ := s.store.CurrentUser()
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Register creates a customer account and starts its session.
func (s *AccountService) Register(ctx context.Context, name, email, phone, password string) (*Session, error) {
	stored, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperrors.NewValidationError("password cannot be stored", map[string]any{"reason": err.Error()})
	}
	user := s.store.Register(name, email, phone, stored)
	if err := s.persist(ctx, "register"); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	s.publish(ctx, events.EventUserRegistered, user.ID, "", nil)
	return s.issue(user)
}

// Logout ends the active session. Only the session's own account may end it.
func (s *AccountService) Logout(ctx context.Context, actorID string) error {
	if _, err := s.SessionUser(actorID); err != nil {
		return err
	}
	s.store.Logout()
	return s.persist(ctx, "logout")
}

// CurrentUser returns the account of the active session.
func (s *AccountService) CurrentUser() (domain.User, error) {
	user, ok := s.store.CurrentUser()
	if !ok {
		return domain.User{}, apperrors.NewNotFound("session", nil)
	}
	return user, nil
}

// SessionUser returns the active session's account when it belongs to actorID.
func (s *AccountService) SessionUser(actorID string) (domain.User, error) {
	user, err := s.CurrentUser()
	if err != nil {
		return domain.User{}, err
	}
	if user.ID != actorID {
		return domain.User{}, apperrors.NewForbidden("token does not belong to the active session")
	}
	return user, nil
}

// ListUsers returns every account in insertion order.
func (s *AccountService) ListUsers() []domain.User {
	return s.store.Users()
}

// GetUser fetches an account by id.
func (s *AccountService) GetUser(id string) (domain.User, error) {
	user, ok := s.store.User(id)
	if !ok {
		return domain.User{}, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

// AddUser creates an account on behalf of an administrator.
func (s *AccountService) AddUser(ctx context.Context, actorID string, nu domain.NewUser) (domain.User, error) {
	if nu.Role != "" && !nu.Role.Valid() {
		return domain.User{}, apperrors.NewValidationError("unknown role", map[string]any{"role": nu.Role})
	}
	stored, err := s.passwords.Hash(nu.Password)
	if err != nil {
		return domain.User{}, apperrors.NewValidationError("password cannot be stored", map[string]any{"reason": err.Error()})
	}
	nu.Password = stored
	user := s.store.AddUser(nu)
	if err := s.persist(ctx, "add_user"); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user added", zap.String("user_id", user.ID), zap.String("actor_id", actorID))
	s.publish(ctx, events.EventUserRegistered, user.ID, actorID, nil)
	return user, nil
}

// UpdateUser merges patch into the account. Role and status must be known
// values and a new password goes through the password policy.
func (s *AccountService) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	if _, err := s.GetUser(id); err != nil {
		return domain.User{}, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return domain.User{}, apperrors.NewValidationError("unknown role", map[string]any{"role": *patch.Role})
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.User{}, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if err := s.hashPatch(&patch); err != nil {
		return domain.User{}, err
	}
	s.store.UpdateUser(id, patch)
	if err := s.persist(ctx, "update_user"); err != nil {
		return domain.User{}, err
	}
	if patch.Preferences != nil {
		s.publish(ctx, events.EventPreferencesChanged, id, "", events.PreferencesChangedPayload{Preferences: *patch.Preferences})
	}
	return s.GetUser(id)
}

// DeleteUser removes an account. The seeded admin is refused.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, id string) error {
	if id == domain.AdminID {
		return apperrors.NewForbidden("the system admin account cannot be deleted")
	}
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	s.store.DeleteUser(id)
	if err := s.persist(ctx, "delete_user"); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actorID))
	s.publish(ctx, events.EventUserDeleted, id, actorID, nil)
	return nil
}

// SuspendUser flags the account suspended until the given time.
func (s *AccountService) SuspendUser(ctx context.Context, actorID, id, until, reason string) (domain.User, error) {
	if _, err := s.GetUser(id); err != nil {
		return domain.User{}, err
	}
	s.store.SuspendUser(id, until, reason)
	if err := s.persist(ctx, "suspend_user"); err != nil {
		return domain.User{}, err
	}
	user, err := s.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user suspended",
		zap.String("user_id", id),
		zap.String("actor_id", actorID),
		zap.String("until", until))
	s.publish(ctx, events.EventUserSuspended, id, actorID, events.UserSuspendedPayload{
		Until:               until,
		Reason:              reason,
		NotificationPayload: latest(user),
	})
	return user, nil
}

// LiftSuspension reactivates the account.
func (s *AccountService) LiftSuspension(ctx context.Context, actorID, id string) (domain.User, error) {
	if _, err := s.GetUser(id); err != nil {
		return domain.User{}, err
	}
	s.store.LiftSuspension(id)
	if err := s.persist(ctx, "lift_suspension"); err != nil {
		return domain.User{}, err
	}
	user, err := s.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("suspension lifted", zap.String("user_id", id), zap.String("actor_id", actorID))
	s.publish(ctx, events.EventSuspensionLifted, id, actorID, latest(user))
	return user, nil
}

// AddNotification attaches a message to the account.
func (s *AccountService) AddNotification(ctx context.Context, actorID, userID, message string) (domain.User, error) {
	if _, err := s.GetUser(userID); err != nil {
		return domain.User{}, err
	}
	s.store.AddNotification(userID, message)
	if err := s.persist(ctx, "add_notification"); err != nil {
		return domain.User{}, err
	}
	user, err := s.GetUser(userID)
	if err != nil {
		return domain.User{}, err
	}
	s.publish(ctx, events.EventNotificationAdded, userID, actorID, latest(user))
	return user, nil
}

// MarkNotificationsRead marks the session's notifications read.
func (s *AccountService) MarkNotificationsRead(ctx context.Context, actorID string) (domain.User, error) {
	return s.updateSession(ctx, actorID, "mark_notifications_read", (*domain.User).MarkNotificationsRead)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AccountService) issue(user domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// updateSession applies fn to the session's account in one store call, so a
// login landing in between cannot redirect the change to another account.
func (s *AccountService) updateSession(ctx context.Context, actorID, op string, fn func(*domain.User)) (domain.User, error) {
	if _, err := s.SessionUser(actorID); err != nil {
		return domain.User{}, err
	}
	user, ok := s.store.UpdateSessionUser(actorID, fn)
	if !ok {
		return domain.User{}, apperrors.NewForbidden("token does not belong to the active session")
	}
	if err := s.persist(ctx, op); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AccountService) hashPatch(patch *domain.UserPatch) error {
	if patch.Password == nil {
		return nil
	}
	stored, err := s.passwords.Hash(*patch.Password)
	if err != nil {
		return apperrors.NewValidationError("password cannot be stored", map[string]any{"reason": err.Error()})
	}
	patch.Password = &stored
	return nil
}

func (s *AccountService) persist(ctx context.Context, op string) error {
	if err := s.store.Save(ctx); err != nil {
		s.logger.Error("persist user snapshot", zap.String("op", op), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

func (s *AccountService) publish(ctx context.Context, t events.EventType, userID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(t)), zap.Error(err))
	}
}

func latest(user domain.User) events.NotificationPayload {
	if len(user.Notifications) == 0 {
		return events.NotificationPayload{}
	}
	n := user.Notifications[0]
	return events.NotificationPayload{NotificationID: n.ID, Message: n.Message}
}
