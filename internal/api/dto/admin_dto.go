package dto

import "github.com/spec-kit/account-service/internal/domain"

// CreateUserRequest payload for POST /admin/users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest payload for PATCH /admin/users/:id. Absent fields are kept.
type UpdateUserRequest struct {
	Name          *string         `json:"name"`
	Email         *string         `json:"email"`
	Phone         *string         `json:"phone"`
	Password      *string         `json:"password"`
	Role          *string         `json:"role"`
	Status        *string         `json:"status"`
	SuspensionEnd *string         `json:"suspension_end"`
	Preferences   *PreferencesDTO `json:"preferences"`
}

// ToPatch converts the request into a store patch.
func (r UpdateUserRequest) ToPatch() domain.UserPatch {
	patch := domain.UserPatch{
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		Password:      r.Password,
		SuspensionEnd: r.SuspensionEnd,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		patch.Role = &role
	}
	if r.Status != nil {
		status := domain.UserStatus(*r.Status)
		patch.Status = &status
	}
	if r.Preferences != nil {
		prefs := r.Preferences.ToDomain()
		patch.Preferences = &prefs
	}
	return patch
}

// SuspendUserRequest payload for POST /admin/users/:id/suspend.
type SuspendUserRequest struct {
	Until  string `json:"until"`
	Reason string `json:"reason"`
}

// NotificationRequest payload for POST /admin/users/:id/notifications.
type NotificationRequest struct {
	Message string `json:"message"`
}
