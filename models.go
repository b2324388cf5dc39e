package main

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/gorm"
)

const (
	Google string = "GOOGLE"
)

// RSVP states a Google attendee can be in.
const (
	NeedsAction string = "needsAction"
	Declined    string = "declined"
	Tentative   string = "tentative"
	Accepted    string = "accepted"
)

type User struct {
	gorm.Model
	Email      string `gorm:"unique;not null"`
	Password   string
	Provider   string
	ProviderID string
	// Serialized oauth2.Token obtained during the consent flow.
	CalendarToken json.RawMessage `gorm:"type:jsonb"`
}

// Calendar is a user's primary Google calendar. A Calendar has many Events.
type Calendar struct {
	gorm.Model
	UserID uint   `gorm:"unique_index:idx_user_cal"`
	CalID  string `gorm:"size:255;unique_index:idx_user_cal"`
	Title  string `gorm:"size:500"`
	// IANA timezone name, the default zone for the calendar's events.
	Timezone string `gorm:"size:100"`
	// SyncToken of the events in the Calendar, used to fetch only new
	// events on the next run. Empty means a full resync is required.
	EventsSyncToken string `gorm:"size:255"`
}

// Account is a person seen as organiser or attendee of an event, unique by
// email. Linked to a User when one with the same email exists locally.
type Account struct {
	gorm.Model
	UserID *uint
	Email  string `gorm:"unique;not null"`
}

// Attendee joins an Account to an Event with its RSVP.
type Attendee struct {
	gorm.Model
	AccountID uint   `gorm:"unique_index:idx_account_event"`
	EventID   string `gorm:"size:255;unique_index:idx_account_event"`
	Account   Account
	RSVP      string `gorm:"size:40;default:'needsAction'"`
}

// Event is keyed by the Google event id itself: the same event is stable
// across calendars and across re-syncs, so no surrogate key is needed.
// All instants are stored as UTC; CreatedAt and UpdatedAt come from the
// feed's metadata, not the local clock.
type Event struct {
	ID          string     `gorm:"primary_key;size:255"`
	Calendars   []Calendar `gorm:"many2many:calendar_events"`
	EventLink   string     `gorm:"size:255"`
	Title       string     `gorm:"size:256"`
	Description string     `gorm:"type:text"`
	Location    string     `gorm:"type:text"`
	OrganiserID uint
	Organiser   Account
	StartTime   time.Time
	EndTime     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
