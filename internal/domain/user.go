package domain

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusSuspended UserStatus = "Suspended"
)

// Role separates ordering customers from administrators.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// AdminID is the id of the seeded, undeletable administrator.
const AdminID = "admin"

// User is the account record persisted in the users snapshot.
type User struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Password      string          `json:"password,omitempty"`
	Role          Role            `json:"role"`
	Status        UserStatus      `json:"status"`
	SuspensionEnd string          `json:"suspensionEnd,omitempty"`
	Notifications []Notification  `json:"notifications"`
	Preferences   UserPreferences `json:"preferences"`
}

// IsSuspended reports whether the account is currently flagged suspended.
func (u User) IsSuspended() bool {
	return u.Status == UserStatusSuspended
}

// UnreadCount returns the number of unread notifications.
func (u User) UnreadCount() int {
	n := 0
	for _, notif := range u.Notifications {
		if !notif.Read {
			n++
		}
	}
	return n
}

// MarkNotificationsRead flags every notification read. The slice is replaced,
// never written in place.
func (u *User) MarkNotificationsRead() {
	notifs := make([]Notification, len(u.Notifications))
	for i, n := range u.Notifications {
		n.Read = true
		notifs[i] = n
	}
	u.Notifications = notifs
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (u User) Clone() User {
	out := u
	out.Notifications = make([]Notification, len(u.Notifications))
	copy(out.Notifications, u.Notifications)
	return out
}

// NewUser carries the fields an administrator supplies when creating an account.
type NewUser struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     Role
}

// UserPatch is a shallow merge applied by UpdateUser. Nil fields are left alone.
// The id is not patchable.
type UserPatch struct {
	Name          *string
	Email         *string
	Phone         *string
	Password      *string
	Role          *Role
	Status        *UserStatus
	SuspensionEnd *string
	Notifications *[]Notification
	Preferences   *UserPreferences
}

// Apply merges the set fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.SuspensionEnd != nil {
		u.SuspensionEnd = *p.SuspensionEnd
	}
	if p.Notifications != nil {
		u.Notifications = append([]Notification(nil), (*p.Notifications)...)
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
}

// IsEmpty reports whether the patch sets no field.
func (p UserPatch) IsEmpty() bool {
	return p == UserPatch{}
}
