package models

import (
	"time"

	"github.com/google/uuid"
)

// Role values assigned by the platform. The identity provider verifies who
// the caller is; the role decides what they may do here.
const (
	RoleUser     = "user"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// User represents a traveler, operator owner, or platform admin. Identity
// verification happens at the external identity provider; this record only
// mirrors the verified subject plus the application-assigned role.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Subject   string    `json:"subject" db:"subject"` // verified identity-provider subject
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
