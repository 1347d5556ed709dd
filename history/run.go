package history

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run is one completed workflow execution.
type Run struct {
	ID         uuid.UUID       `gorm:"type:text;primaryKey" json:"id"`
	Workflow   string          `gorm:"index;not null" json:"workflow"`
	Subject    string          `json:"subject"`
	Status     string          `gorm:"not null" json:"status"`
	Report     string          `gorm:"type:text" json:"report"`
	Record     JSONText        `gorm:"type:text" json:"record"`
	Steps      int             `json:"steps"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `gorm:"index;autoCreateTime" json:"created_at"`
}

// TableName pins the table name.
func (Run) TableName() string { return "runs" }

// BeforeCreate generates an ID if none is set.
func (r *Run) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Duration returns DurationMS as a time.Duration.
func (r *Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// JSONText is a JSON document stored in a text column. It marshals as the
// raw document rather than as a string.
type JSONText []byte

// Value implements driver.Valuer.
func (j JSONText) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = JSONText(v)
	case []byte:
		*j = append((*j)[:0], v...)
	default:
		return fmt.Errorf("history: cannot scan %T into JSONText", src)
	}
	return nil
}

// MarshalJSON returns the document itself, or null when empty.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of data.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
