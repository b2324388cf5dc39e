package main

import (
	"path/filepath"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	calendar "google.golang.org/api/calendar/v3"
)

// newTestDB opens a throwaway sqlite-backed gorm DB with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })
	migrate(testDB)
	return testDB
}

func createTestUser(t *testing.T, testDB *gorm.DB, email string) *User {
	t.Helper()
	user := &User{Email: email}
	if err := testDB.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func createTestCalendar(t *testing.T, testDB *gorm.DB, user *User, timezone string) *Calendar {
	t.Helper()
	cal := &Calendar{
		UserID:          user.ID,
		CalID:           user.Email,
		Title:           user.Email,
		Timezone:        timezone,
		EventsSyncToken: "events_sync_token",
	}
	if err := testDB.Create(cal).Error; err != nil {
		t.Fatalf("failed to create calendar: %v", err)
	}
	return cal
}

// fixtureEvents mirrors two typical feed records: a timed one-on-one with a
// concrete organiser, and a standup organised from a group calendar.
func fixtureEvents() []*calendar.Event {
	return []*calendar.Event{
		{
			Id:          "752jkq80k2213ed13e13134",
			Status:      "confirmed",
			Summary:     "One on one",
			Description: "description1",
			Location:    "Skype",
			HtmlLink:    "www.example.com/1",
			Created:     "2015-06-19T16:20:45.000Z",
			Updated:     "2015-06-24T04:31:45.434Z",
			Start:       &calendar.EventDateTime{DateTime: "2015-06-24T14:30:00+05:30"},
			End:         &calendar.EventDateTime{DateTime: "2015-06-24T15:30:00+05:30"},
			Organizer:   &calendar.EventOrganizer{Email: "user@admin.com"},
			Creator:     &calendar.EventCreator{Email: "admin@admin.com"},
			Attendees: []*calendar.EventAttendee{
				{Email: "admin@admin.com", ResponseStatus: "accepted"},
				{Email: "user@admin.com", ResponseStatus: "accepted"},
			},
		},
		{
			Id:        "752jkq80k2213ed13jgpo",
			Status:    "confirmed",
			Summary:   "Standup Meeting",
			HtmlLink:  "www.example.com/2",
			Created:   "2015-08-03T04:04:32.000Z",
			Updated:   "2015-08-03T08:25:01.102Z",
			Start:     &calendar.EventDateTime{DateTime: "2015-08-03T10:00:00+05:30", TimeZone: "Asia/Kolkata"},
			End:       &calendar.EventDateTime{DateTime: "2015-08-03T10:15:00+05:30", TimeZone: "Asia/Kolkata"},
			Organizer: &calendar.EventOrganizer{Email: "admin@group.calendar.google.com"},
			Creator:   &calendar.EventCreator{Email: "admin2@admin.com"},
			Attendees: []*calendar.EventAttendee{
				{Email: "admin@admin.com", ResponseStatus: "declined"},
				{Email: "admin2@admin.com", ResponseStatus: "needsAction"},
				{Email: "user2@admin.com", ResponseStatus: "accepted"},
			},
		},
	}
}

// fakeFeed serves canned pages keyed by page token; "" is the first page.
type fakeFeed struct {
	calendar  *calendar.Calendar
	pages     map[string]*calendar.Events
	listErr   map[string]error // keyed by sync token
	pageErr   map[string]error // keyed by page token
	listCalls int
}

func (f *fakeFeed) PrimaryCalendar() (*calendar.Calendar, error) {
	return f.calendar, nil
}

func (f *fakeFeed) ListEvents(pageToken, syncToken string) (*calendar.Events, error) {
	f.listCalls++
	if err, ok := f.listErr[syncToken]; ok {
		return nil, err
	}
	if err, ok := f.pageErr[pageToken]; ok {
		return nil, err
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return &calendar.Events{}, nil
	}
	return page, nil
}

func singlePageFeed(tz string, items ...*calendar.Event) *fakeFeed {
	return &fakeFeed{
		calendar: &calendar.Calendar{Id: "admin@admin.com", Summary: "admin@admin.com", TimeZone: tz},
		pages: map[string]*calendar.Events{
			"": {Items: items, NextSyncToken: "next_sync_token"},
		},
	}
}
