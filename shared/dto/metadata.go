package dto

import (
	"time"

	"meetroom/shared/constant"
	"meetroom/shared/model"
	"meetroom/shared/timezone"
)

// Metadata renders the audit block in the application timezone.
type Metadata struct {
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	CreatedBy  string `json:"created_by,omitempty"`
	ModifiedBy string `json:"modified_by,omitempty"`
}

func (m *Metadata) FromModel(meta model.Metadata) {
	*m = Metadata{
		CreatedAt:  formatStamp(meta.CreatedAt),
		ModifiedAt: formatStamp(meta.ModifiedAt),
		CreatedBy:  meta.CreatedBy,
		ModifiedBy: meta.ModifiedBy,
	}
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return timezone.Format(t, constant.DateFormat)
}
