package dto

import (
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

// UserRegisterRequest payload for new customers.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PreferencesDTO mirrors domain.UserPreferences on the wire.
type PreferencesDTO struct {
	PushEnabled  bool `json:"push_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
}

// ToDomain converts the payload.
func (p PreferencesDTO) ToDomain() domain.UserPreferences {
	return domain.UserPreferences{PushEnabled: p.PushEnabled, EmailEnabled: p.EmailEnabled, SMSEnabled: p.SMSEnabled}
}

// NotificationResponse is one entry of a user's notification feed.
type NotificationResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// UserResponse is the public view of an account. The password is never included.
type UserResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	Role          domain.Role            `json:"role"`
	Status        domain.UserStatus      `json:"status"`
	SuspensionEnd *string                `json:"suspension_end,omitempty"`
	UnreadCount   int                    `json:"unread_count"`
	Notifications []NotificationResponse `json:"notifications"`
	Preferences   PreferencesDTO         `json:"preferences"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u domain.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		Status:        u.Status,
		UnreadCount:   u.UnreadCount(),
		Notifications: make([]NotificationResponse, 0, len(u.Notifications)),
		Preferences: PreferencesDTO{
			PushEnabled:  u.Preferences.PushEnabled,
			EmailEnabled: u.Preferences.EmailEnabled,
			SMSEnabled:   u.Preferences.SMSEnabled,
		},
	}
	if u.SuspensionEnd != "" {
		end := u.SuspensionEnd
		resp.SuspensionEnd = &end
	}
	for _, n := range u.Notifications {
		resp.Notifications = append(resp.Notifications, NotificationResponse(n))
	}
	return resp
}

// NewUserResponses maps a list of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// ProfileUpdateRequest payload for PATCH /session/profile.
type ProfileUpdateRequest struct {
	Name            *string         `json:"name"`
	Phone           *string         `json:"phone"`
	Password        string          `json:"password"`
	ConfirmPassword string          `json:"confirm_password"`
	Preferences     *PreferencesDTO `json:"preferences"`
}
