package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Partner is an external B2B system registered to receive event webhooks.
// The shared secret is generated once at registration and never rotated;
// deactivation flips Active and keeps the row for audit.
type Partner struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	CallbackURL string         `gorm:"column:callback_url;not null" json:"callback_url"`
	Secret      string         `gorm:"not null" json:"-"`
	Events      datatypes.JSON `gorm:"type:jsonb;not null" json:"events"`
	Active      bool           `gorm:"not null" json:"active"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }

// SubscribedEvents decodes the stored event list. A corrupt column reads as
// no subscriptions rather than failing the delivery path.
func (p *Partner) SubscribedEvents() []string {
	var events []string
	if err := json.Unmarshal(p.Events, &events); err != nil {
		return nil
	}
	return events
}

// Subscribed reports whether the partner subscribed to the event name.
func (p *Partner) Subscribed(event string) bool {
	for _, name := range p.SubscribedEvents() {
		if name == event {
			return true
		}
	}
	return false
}

// EncodeEvents serializes an event list for the Events column.
func EncodeEvents(events []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
