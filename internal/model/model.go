package model

import "time"

// User is the public identity record. The password hash never leaves the
// store layer; tokens and handlers only ever see User.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserRecord is the server-only shape held by the credential store.
type UserRecord struct {
	User
	PasswordHash string
	CreatedAt    time.Time
}
