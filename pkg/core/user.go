package core

import "time"

// User is an account that owns figures. PasswordHash is a bcrypt hash and
// never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
