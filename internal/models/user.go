package models

import (
	"slices"
	"time"
)

// UserStatus is the approval state of an account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
		return true
	}
	return false
}

// Role grants access to a part of the application.
type Role string

const (
	RoleUser                 Role = "user"
	RoleAdmin                Role = "admin"
	RoleFinanceStaff         Role = "finance_staff"
	RoleTreasurer            Role = "treasurer"
	RoleReimbursementContact Role = "reimbursementContact"
)

// AllRoles lists every known role in display order.
var AllRoles = []Role{RoleUser, RoleAdmin, RoleFinanceStaff, RoleTreasurer, RoleReimbursementContact}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// Preferences holds a user's notification choices.
type Preferences struct {
	// EmailOnNewRequirement sends an email whenever someone else submits a
	// purchase request.
	EmailOnNewRequirement bool `json:"emailOnNewRequirement"`

	// EmailOnPurchased sends an email when one of the user's own requests
	// is marked purchased.
	EmailOnPurchased bool `json:"emailOnPurchased"`
}

// User represents a registered account.
type User struct {
	// ID is the identity-provider uid (Firebase) or a UUID in local mode.
	ID string `json:"id"`

	Email       string `json:"email"`
	DisplayName string `json:"displayName"`

	Status UserStatus `json:"status"`

	// Roles is the set of roles held by the user. RoleUser is always present.
	Roles []Role `json:"roles"`

	Preferences Preferences `json:"preferences"`

	// PasswordHash is only set in local auth mode.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// IsApproved reports whether the account may use the application.
func (u *User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

// Name returns the display name, falling back to the email address.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// NormalizeRoles deduplicates roles, drops unknown ones, guarantees RoleUser
// and orders the result like AllRoles.
func NormalizeRoles(roles []Role) []Role {
	set := map[Role]bool{RoleUser: true}
	for _, r := range roles {
		if r.Valid() {
			set[r] = true
		}
	}
	out := make([]Role, 0, len(set))
	for _, r := range AllRoles {
		if set[r] {
			out = append(out, r)
		}
	}
	return out
}

// PublicUser is the subset of a user visible to other members.
type PublicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Roles       []Role `json:"roles"`
}

// Public returns the user's public profile.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
	}
}
