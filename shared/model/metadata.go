package model

import (
	"time"

	"meetroom/shared/constant"
)

// Metadata is the audit block embedded by every stored entity.
type Metadata struct {
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	CreatedBy  string    `db:"created_by"  json:"created_by"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}

func NewMetadata(actor string, at time.Time) Metadata {
	return Metadata{
		CreatedAt:  at,
		ModifiedAt: at,
		CreatedBy:  actor,
		ModifiedBy: actor,
	}
}

// Touch stamps fields, an update column set, with the modifying actor and time.
func Touch(fields map[string]any, actor string, at time.Time) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}

	fields[constant.FieldModifiedAt] = at
	fields[constant.FieldModifiedBy] = actor

	return fields
}
