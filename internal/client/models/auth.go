package models

// Role is the account role reported by the backend.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdmin reports whether r may manage the catalog and see notifications.
// It only decides what the CLI offers; the backend enforces access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Token is the response of POST /auth/token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Identity is the response of GET /auth/me.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Registration is the body of POST /auth/users.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// Message is the generic {"msg": ...} acknowledgement.
type Message struct {
	Msg string `json:"msg"`
}
