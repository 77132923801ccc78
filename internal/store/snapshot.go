package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

// Keys returns the storage keys for the users collection and the session.
func (s *UserStore) Keys() (users, current string) {
	return s.usersKey, s.currentKey
}

// Load replaces in-memory state with the persisted snapshot. A missing users
// entry seeds the admin account; a missing or null session entry means nobody
// is logged in. A persisted session whose id no longer exists is dropped.
func (s *UserStore) Load(ctx context.Context) error {
	users, seeded, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	sessionID, err := s.loadSessionID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.sessionID = ""
	if sessionID != "" {
		if s.indexOf(sessionID) >= 0 {
			s.sessionID = sessionID
		} else {
			s.logger.Warn("persisted session refers to unknown user; logging out", zap.String("user_id", sessionID))
		}
	}

	s.logger.Info("user store loaded",
		zap.Int("users", len(s.users)),
		zap.Bool("seeded", seeded),
		zap.Bool("session", s.sessionID != ""))
	return nil
}

func (s *UserStore) loadUsers(ctx context.Context) ([]domain.User, bool, error) {
	raw, err := s.kv.Get(ctx, s.usersKey)
	if errors.Is(err, persistence.ErrKeyNotFound) {
		return []domain.User{s.seed.Clone()}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load users: %w", err)
	}

	var users []domain.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, false, fmt.Errorf("decode users: %w", err)
	}
	if users == nil {
		return []domain.User{s.seed.Clone()}, true, nil
	}
	for i := range users {
		if users[i].Notifications == nil {
			users[i].Notifications = []domain.Notification{}
		}
	}
	return users, false, nil
}

func (s *UserStore) loadSessionID(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, s.currentKey)
	if errors.Is(err, persistence.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var current *domain.User
	if err := json.Unmarshal(raw, &current); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	if current == nil {
		return "", nil
	}
	return current.ID, nil
}

// Save writes the full users collection and the session record. Both keys are
// rewritten in full on every call.
func (s *UserStore) Save(ctx context.Context) error {
	s.mu.RLock()
	usersRaw, err := json.Marshal(s.users)
	if err != nil {
		s.mu.RUnlock()
		return fmt.Errorf("encode users: %w", err)
	}
	var current *domain.User
	if i := s.indexOf(s.sessionID); s.sessionID != "" && i >= 0 {
		u := s.users[i]
		current = &u
	}
	currentRaw, err := json.Marshal(current)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.kv.Set(ctx, s.usersKey, usersRaw); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	if err := s.kv.Set(ctx, s.currentKey, currentRaw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
