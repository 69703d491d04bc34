package model

import "meetroom/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID          = "id"
	FieldName        = "name"
	FieldLocation    = "location"
	FieldCapacity    = "capacity"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldActive      = "active"
)

// Room is a bookable meeting room. Inactive rooms stay listed for history but
// are hidden from the public directory by default.
type Room struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Location    string `db:"location"`
	Capacity    int    `db:"capacity"`
	Description string `db:"description"`
	Image       string `db:"image"`
	Active      bool   `db:"active"`
	model.Metadata
}
