package models

import "time"

// User is a registered account. Users are created once and never updated or
// deleted; PasswordHash is an opaque bcrypt digest and must never leave the
// server.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
