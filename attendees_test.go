package main

import (
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	calendar "google.golang.org/api/calendar/v3"
)

func createStoredEvent(t *testing.T, testDB *gorm.DB, id string) *Event {
	t.Helper()
	organiser, err := getOrCreateAccount(testDB, "organiser@example.com")
	if err != nil {
		t.Fatal(err)
	}
	event := &Event{
		ID:          id,
		Title:       "One on one",
		OrganiserID: organiser.ID,
		StartTime:   time.Date(2015, 8, 3, 4, 45, 0, 0, time.UTC),
		EndTime:     time.Date(2015, 8, 3, 5, 45, 0, 0, time.UTC),
		CreatedAt:   time.Date(2015, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2015, 8, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := testDB.Create(event).Error; err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return event
}

func TestCreateAttendees(t *testing.T) {
	testDB := newTestDB(t)
	event := createStoredEvent(t, testDB, "752jkq80k2213ed13e13134")

	records := []*calendar.EventAttendee{
		{Email: "admin@admin.com", ResponseStatus: "declined"},
		{Email: "admin2@admin.com", ResponseStatus: "needsAction"},
		{Email: "user2@admin.com", ResponseStatus: "accepted"},
	}

	attendees, err := createAttendees(testDB, event, records)
	if err != nil {
		t.Fatalf("createAttendees() returned an error: %v", err)
	}
	if len(attendees) != 3 {
		t.Fatalf("Expected 3 attendees, got %d", len(attendees))
	}
	for i, record := range records {
		if attendees[i].Account.Email != record.Email {
			t.Errorf("Expected attendee %d to be %s, got %s", i, record.Email, attendees[i].Account.Email)
		}
		if attendees[i].RSVP != record.ResponseStatus {
			t.Errorf("Expected RSVP %s for %s, got %s", record.ResponseStatus, record.Email, attendees[i].RSVP)
		}
		if attendees[i].EventID != event.ID {
			t.Errorf("Expected attendee %d bound to event %s, got %s", i, event.ID, attendees[i].EventID)
		}
	}
}

func TestCreateAttendees_UpsertOverwritesRSVP(t *testing.T) {
	testDB := newTestDB(t)
	event := createStoredEvent(t, testDB, "752jkq80k2213ed13jgpo")

	if _, err := createAttendees(testDB, event, []*calendar.EventAttendee{
		{Email: "admin@admin.com", ResponseStatus: "tentative"},
	}); err != nil {
		t.Fatalf("createAttendees() returned an error: %v", err)
	}

	attendees, err := createAttendees(testDB, event, []*calendar.EventAttendee{
		{Email: "admin@admin.com", ResponseStatus: "accepted"},
	})
	if err != nil {
		t.Fatalf("createAttendees() returned an error: %v", err)
	}
	if attendees[0].RSVP != "accepted" {
		t.Errorf("Expected RSVP overwritten to accepted, got %s", attendees[0].RSVP)
	}

	var count int
	testDB.Model(&Attendee{}).Where("event_id = ?", event.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly one attendee row after re-run, got %d", count)
	}

	stored := &Attendee{}
	if err := testDB.Where("event_id = ?", event.ID).First(stored).Error; err != nil {
		t.Fatal(err)
	}
	if stored.RSVP != "accepted" {
		t.Errorf("Expected stored RSVP accepted, got %s", stored.RSVP)
	}
}
