package main

import (
	"fmt"

	"github.com/jinzhu/gorm"
	calendar "google.golang.org/api/calendar/v3"
)

// createAttendees upserts one Attendee row per attendee record of a single
// event, keyed by (account, event). Re-running with a changed responseStatus
// overwrites the stored RSVP instead of duplicating the row. Attendees that
// vanish from a later version of the event are left alone; reconciliation is
// only ever additive.
func createAttendees(tx *gorm.DB, event *Event, records []*calendar.EventAttendee) ([]*Attendee, error) {
	var attendees []*Attendee
	for _, record := range records {
		account, err := getOrCreateAccount(tx, record.Email)
		if err != nil {
			return nil, err
		}

		attendee := &Attendee{}
		err = tx.Where("account_id = ? AND event_id = ?", account.ID, event.ID).First(attendee).Error
		switch {
		case err == nil:
			if attendee.RSVP != record.ResponseStatus {
				attendee.RSVP = record.ResponseStatus
				if err := tx.Save(attendee).Error; err != nil {
					return nil, fmt.Errorf("update attendee %s on event %s: %w", record.Email, event.ID, err)
				}
			}
		case gorm.IsRecordNotFoundError(err):
			attendee = &Attendee{
				AccountID: account.ID,
				EventID:   event.ID,
				RSVP:      record.ResponseStatus,
			}
			if err := tx.Create(attendee).Error; err != nil {
				return nil, fmt.Errorf("create attendee %s on event %s: %w", record.Email, event.ID, err)
			}
		default:
			return nil, fmt.Errorf("look up attendee %s on event %s: %w", record.Email, event.ID, err)
		}
		attendee.Account = *account
		attendees = append(attendees, attendee)
	}
	return attendees, nil
}
