package models

import (
	"net"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Event string

// Activity defines an activity log event performed by a user over one of their
// connections. This is used to keep an audit trail of logins and every change
// made to the storage tree.
type Activity struct {
	ID int `gorm:"primaryKey;not null" json:"-"`
	// User is the name of the user that triggered this event.
	User string `gorm:"index;not null" json:"user"`
	// Session is the unique identifier of the connection the event happened on.
	Session string `gorm:"index" json:"session"`
	// Event is a string that describes what occurred.
	Event Event `gorm:"index;not null" json:"event"`
	// Metadata is a JSON blob with additional event specific metadata.
	Metadata ActivityMeta `gorm:"type:text" json:"metadata"`
	// IP is the IP address of the client that triggered this event, or an empty
	// string if it cannot be determined.
	IP        string    `gorm:"not null" json:"ip"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// BeforeCreate executes before we create any activity entry to ensure the IP address
// is trimmed down to remove any extraneous data, and the timestamp is set to the current
// system time and then stored as UTC.
func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if ip, _, err := net.SplitHostPort(strings.TrimSpace(a.IP)); err == nil {
		a.IP = ip
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()
	if a.Metadata == nil {
		a.Metadata = ActivityMeta{}
	}
	return nil
}
