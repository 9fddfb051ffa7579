package authapi

import (
	"github.com/jrsteele09/rewine-client/internal/utils"
	"github.com/jrsteele09/rewine-client/users"
)

// Endpoint paths relative to the API base URL.
const (
	LoginPath              = "/auth/login"
	RegisterPath           = "/auth/register"
	RefreshPath            = "/auth/refresh"
	LogoutPath             = "/auth/logout"
	MePath                 = "/auth/me"
	ForgotPasswordPath     = "/auth/forgot-password"
	ResetPasswordPath      = "/auth/reset-password"
	VerifyEmailPath        = "/auth/verify-email"
	ResendVerificationPath = "/auth/resend-verification"
)

// LoginRequest accepts a username or an email in UsernameOrEmail.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int64    `json:"expiresIn"` // seconds
	TokenType    string   `json:"tokenType"`
	User         AuthUser `json:"user"`
}

type AuthUser struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Name          *string  `json:"name"`
	AvatarURL     *string  `json:"avatarUrl,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified"`
}

// RefreshResponse carries a RefreshToken only when the server rotates it.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType,omitempty"`
}

type MeResponse struct {
	AuthUser
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the body the backend sends with every non 2xx status.
// Older endpoints use error/errors instead of message/details.
type errorResponse struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Error     string              `json:"error"`
	Details   map[string][]string `json:"details"`
	Errors    map[string][]string `json:"errors"`
	Path      string              `json:"path"`
	TraceID   string              `json:"traceId"`
	Timestamp string              `json:"timestamp"`
}

// ToUser maps the wire user onto the client's user, defaulting the display name
// to the username and normalizing roles.
func (u AuthUser) ToUser() *users.User {
	return &users.User{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		DisplayName:   utils.FirstNonZero(utils.Value(u.Name), u.Username),
		AvatarURL:     utils.Value(u.AvatarURL),
		Roles:         users.NormalizeRoles(u.Roles),
		EmailVerified: u.EmailVerified,
	}
}

// FromUser is the inverse of ToUser, used by the fake server.
func FromUser(u *users.User) AuthUser {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return AuthUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Name:          utils.PtrOrNil(u.DisplayName),
		AvatarURL:     utils.PtrOrNil(u.AvatarURL),
		Roles:         roles,
		EmailVerified: u.EmailVerified,
	}
}
