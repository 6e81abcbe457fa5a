package model

// UserRole mirrors the role claim minted by the external identity service.
// No user table exists here; accounts are managed elsewhere and callers
// arrive already authenticated.
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)
