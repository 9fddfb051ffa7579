package users

import "strings"

// RoleType represents a user role as issued by the rewine backend
type RoleType string

const (
	RoleAdmin     RoleType = "ROLE_ADMIN"     // Full administrative access
	RoleModerator RoleType = "ROLE_MODERATOR" // Can moderate reviews and comments
	RolePartner   RoleType = "ROLE_PARTNER"   // Wineries and event organisers
	RoleUser      RoleType = "ROLE_USER"      // Regular registered user
)

// DefaultRole is assigned when the server omits roles for an authenticated user.
const DefaultRole = RoleUser

var roleAliases = map[string]RoleType{
	"user":      RoleUser,
	"admin":     RoleAdmin,
	"moderator": RoleModerator,
	"partner":   RolePartner,
}

// ParseRole maps both the short ("admin") and prefixed ("ROLE_ADMIN") spellings.
// Anything unrecognised is treated as a regular user.
func ParseRole(role string) RoleType {
	switch r := RoleType(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleModerator, RolePartner, RoleUser:
		return r
	}
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(role))]; ok {
		return r
	}
	return RoleUser
}

// NormalizeRoles parses and de-duplicates roles, never returning an empty set.
func NormalizeRoles(raw []string) []RoleType {
	roles := make([]RoleType, 0, len(raw))
	seen := make(map[RoleType]struct{}, len(raw))
	for _, r := range raw {
		role := ParseRole(r)
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = append(roles, DefaultRole)
	}
	return roles
}

// User is the identity and authorization data the client keeps for the signed in user.
type User struct {
	ID            string     `json:"id"`                  // Unique identifier for the user
	Username      string     `json:"username,omitempty"`  // Unique username
	Email         string     `json:"email,omitempty"`     // User's email address
	DisplayName   string     `json:"displayName"`         // Name shown in the UI
	AvatarURL     string     `json:"avatarUrl,omitempty"` // Profile picture
	Roles         []RoleType `json:"roles"`               // Never empty for an authenticated user
	EmailVerified bool       `json:"emailVerified"`       // Has the user verified their email address
}

// HasRole reports whether the user holds role. A nil user has no roles.
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...RoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the user holds every one of roles.
func (u *User) HasAllRoles(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, role := range roles {
		if !u.HasRole(role) {
			return false
		}
	}
	return true
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Clone returns a deep copy so callers never share the store's role slice.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]RoleType(nil), u.Roles...)
	return &c
}

// Identifier returns the handle the user logs in with.
func (u *User) Identifier() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Username
}
