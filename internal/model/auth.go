package model

import "time"

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credential is the stored account record. PasswordHash never leaves the
// service layer.
type Credential struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session records an issued token for active-session accounting. It is
// never consulted to authorize a request.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// AuthUser is the principal attached to a request by the auth middleware.
type AuthUser struct {
	ID       string
	Username string
}

func (c *Credential) View() UserView {
	return UserView{
		ID:        c.ID,
		Username:  c.Username,
		CreatedAt: c.CreatedAt,
	}
}
