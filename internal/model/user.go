package model

// Role is the account role of a storefront user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the profile resolved from a session.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Role   Role   `json:"role"`
}

// UserToken is an access/refresh pair. Only the exp claim of a JWT access token is
// ever read, to skip restoring an expired session.
type UserToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterUserInfo is the sign-up payload.
type RegisterUserInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Account is a stored user including secrets; only the backend sees it.
type Account struct {
	User
	PwdHash  []byte // Argon2id(password, SaltAuth)
	SaltAuth []byte // per-user auth salt
}
