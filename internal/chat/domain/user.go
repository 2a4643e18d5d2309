package domain

import "time"

// User is referenced by conversations and messages but never owned by them.
// Credential handling (hashing, token issuance) lives outside this service;
// PasswordHash is stored opaque.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
