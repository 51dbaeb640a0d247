package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserRole separates requesters from the agents who work the queue.
type UserRole string

const (
	RoleRequester UserRole = "REQUESTER"
	RoleAgent     UserRole = "AGENT"
)

// User is the domain model for portal accounts.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
