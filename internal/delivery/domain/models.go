package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Attempt is one HTTP try, inbound or outbound. Rows are insert-only; a
// retried event produces one row per try, and the log is the only record an
// operator has for manual replay after the retry budget is spent.
type Attempt struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	PartnerID     *snowflake.ID  `gorm:"index" json:"partner_id,omitempty"`
	Direction     string         `gorm:"not null;index" json:"direction"`
	Event         string         `gorm:"not null;index" json:"event"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Signature     string         `gorm:"not null" json:"signature"`
	AttemptNumber int            `gorm:"not null;default:1" json:"attempt_number"`
	Status        string         `gorm:"not null;index" json:"status"`
	ResponseCode  int            `json:"response_code,omitempty"`
	ResponseBody  string         `gorm:"type:text" json:"response_body,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Attempt) TableName() string { return "delivery_attempts" }

// ListFilter narrows the audit query surface. Zero values match everything.
type ListFilter struct {
	PartnerID string
	Event     string
	Direction string
	Status    string
}
