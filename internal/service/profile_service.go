package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// ProfileUpdate is what the profile editor submits for the signed-in user.
// Email is not editable here.
type ProfileUpdate struct {
	Name            *string
	Phone           *string
	Password        string
	ConfirmPassword string
	Preferences     *domain.UserPreferences
}

// ProfileService applies the profile editor's rules before touching the account.
type ProfileService struct {
	accounts *AccountService
}

// NewProfileService wires the profile service onto the account service.
func NewProfileService(accounts *AccountService) *ProfileService {
	return &ProfileService{accounts: accounts}
}

// ValidatePassword requires 8+ characters with an ASCII upper-case letter, an
// ASCII lower-case letter and an ASCII digit.
func ValidatePassword(password string) error {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case 'a' <= r && r <= 'z':
			hasLower = true
		case '0' <= r && r <= '9':
			hasDigit = true
		}
	}
	if utf8.RuneCountInString(password) < minPasswordLength || !hasUpper || !hasLower || !hasDigit {
		return apperrors.NewValidationError("password must be 8+ chars with upper, lower and number", map[string]any{"field": "password"})
	}
	return nil
}

// UpdateProfile validates and applies the update to actorID's account, which
// must own the active session. An empty Password leaves the current password
// unchanged.
func (p *ProfileService) UpdateProfile(ctx context.Context, actorID string, update ProfileUpdate) (domain.User, error) {
	current, err := p.accounts.SessionUser(actorID)
	if err != nil {
		return domain.User{}, err
	}

	patch := domain.UserPatch{Preferences: update.Preferences}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.User{}, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		patch.Name = &name
	}
	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		patch.Phone = &phone
	}
	if update.Password != "" {
		if err := ValidatePassword(update.Password); err != nil {
			return domain.User{}, err
		}
		if update.Password != update.ConfirmPassword {
			return domain.User{}, apperrors.NewValidationError("passwords do not match", map[string]any{"field": "confirm_password"})
		}
		pw := update.Password
		patch.Password = &pw
	}
	if patch.IsEmpty() {
		return current, nil
	}
	if err := p.accounts.hashPatch(&patch); err != nil {
		return domain.User{}, err
	}

	user, err := p.accounts.updateSession(ctx, actorID, "update_profile", patch.Apply)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Preferences != nil {
		p.accounts.publish(ctx, events.EventPreferencesChanged, user.ID, user.ID, events.PreferencesChangedPayload{Preferences: user.Preferences})
	}
	return user, nil
}

// TogglePreference flips one notification channel for actorID's session
// account and saves it immediately.
func (p *ProfileService) TogglePreference(ctx context.Context, actorID, channel string) (domain.User, error) {
	ch, ok := domain.ParseChannel(strings.ToLower(channel))
	if !ok {
		return domain.User{}, apperrors.NewValidationError("unknown channel", map[string]any{"channel": channel})
	}
	user, err := p.accounts.updateSession(ctx, actorID, "toggle_preference", func(u *domain.User) {
		u.Preferences = u.Preferences.Toggle(ch)
	})
	if err != nil {
		return domain.User{}, err
	}
	p.accounts.publish(ctx, events.EventPreferencesChanged, user.ID, user.ID, events.PreferencesChangedPayload{Preferences: user.Preferences})
	return user, nil
}
