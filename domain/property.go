package domain

import "time"

type PropertyStatus string

const (
	PropertyActive    PropertyStatus = "active"
	PropertyCompleted PropertyStatus = "completed"
	PropertyPaused    PropertyStatus = "paused"
)

// Property is the listing a conversation is about. Listing details beyond
// the title live outside this module.
type Property struct {
	ID        string
	OwnerID   string         `validate:"required"`
	Title     string         `validate:"required,max=255"`
	Status    PropertyStatus `validate:"required,oneof=active completed paused"`
	CreatedAt time.Time
}

func (p Property) Validate() error {
	return checkStruct(p).Err()
}
