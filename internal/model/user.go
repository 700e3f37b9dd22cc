package model

import "time"

// Roles a user can hold.  Stored verbatim in users.role.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User represents an application user record as stored in the
// `users` table.  The password hash never leaves the server: it is
// excluded from JSON output.  IsVerified gates every authenticated
// action; unverified accounts are rejected at login and on each request.
type User struct {
	ID           uint64    `json:"id"`            // users.id
	Username     string    `json:"username"`      // users.username
	Email        string    `json:"email"`         // users.email
	PasswordHash string    `json:"-"`             // users.password_hash
	Role         string    `json:"role"`          // users.role (admin|customer)
	IsVerified   bool      `json:"is_verified"`   // users.is_verified
	Address      Address   `json:"address"`       // users.address_* columns
	CreatedAt    time.Time `json:"created_at"`    // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // users.updated_at
}

// Address is the optional delivery address stored with a user.
type Address struct {
	Line1      string `json:"address_line1,omitempty"`
	Line2      string `json:"address_line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored; the raw value is handed to the
// client once.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
