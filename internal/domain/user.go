package domain

import "time"

// UserRole distinguishes administrators from field technicians.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleTechnician UserRole = "technician"
)

// IsValid returns true if the role is a recognized value.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleTechnician
}

// User is an authenticated account. Technicians submit inspections; admins
// additionally manage regions and towers.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, never serialized to API responses
	Role         UserRole
	Phone        string
	CreatedAt    time.Time
}
