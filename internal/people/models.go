package people

import (
	"time"
)

// Person is a social-graph participant. UserID stays NULL for invited people
// who have not registered yet; registration claims the record by phone number.
type Person struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `json:"name"`
	PhoneNumber *string   `gorm:"index" json:"phone_number"`
	UserID      *string   `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Connection is one direction of a symmetric friend edge. Every connected pair
// has two rows, one per direction. The composite primary key doubles as the
// uniqueness guard against double-inserts racing past the pre-checks.
type Connection struct {
	PersonID            string    `gorm:"primaryKey" json:"person_id"`
	ConnectedPersonID   string    `gorm:"primaryKey" json:"connected_person_id"`
	InitiatedByPersonID string    `json:"initiated_by_person_id"`
	Status              string    `gorm:"default:'connected'" json:"status"`
	ConnectedAt         time.Time `gorm:"autoCreateTime" json:"connected_at"`
}

// Block is a single directed edge: PersonID blocks BlockedPersonID.
type Block struct {
	PersonID        string    `gorm:"primaryKey" json:"person_id"`
	BlockedPersonID string    `gorm:"primaryKey" json:"blocked_person_id"`
	BlockedAt       time.Time `gorm:"autoCreateTime" json:"blocked_at"`
}

const StatusConnected = "connected"

func (Person) TableName() string     { return "people" }
func (Connection) TableName() string { return "people_connections" }
func (Block) TableName() string      { return "people_blocks" }
