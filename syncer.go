package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// CalendarFeed is the slice of the Google Calendar API the syncer consumes.
// The production implementation wraps calendar.Service; tests substitute a
// fake returning canned pages.
type CalendarFeed interface {
	PrimaryCalendar() (*calendar.Calendar, error)
	ListEvents(pageToken, syncToken string) (*calendar.Events, error)
}

// ErrEventCancelled aborts a sync run when the feed delivers a cancelled
// event. Nothing from the run is persisted, including the new sync token.
var ErrEventCancelled = errors.New("cancelled event in feed")

// Syncer folds the paginated event feed into the local store. Each run is
// one transaction: either every new Event, Attendee and the advanced sync
// token land together, or the store is left exactly as before the run.
type Syncer struct {
	db   *gorm.DB
	feed CalendarFeed
}

func NewSyncer(db *gorm.DB, feed CalendarFeed) *Syncer {
	return &Syncer{db: db, feed: feed}
}

// Sync registers the user's primary calendar and synchronizes its events.
// It returns every event encountered in this run, in feed order, so callers
// can report a count.
func (s *Syncer) Sync(user *User) ([]*Event, error) {
	record, err := s.feed.PrimaryCalendar()
	if err != nil {
		return nil, fmt.Errorf("fetch primary calendar: %w", err)
	}
	cal, err := getOrCreateCalendar(s.db, user, record)
	if err != nil {
		return nil, err
	}
	return s.syncEvents(cal)
}

func (s *Syncer) syncEvents(cal *Calendar) ([]*Event, error) {
	items, nextSyncToken, err := s.collectPages(cal.EventsSyncToken)
	if isGoogleStatus(err, 410) {
		// The stored sync token has expired upstream; the feed demands a
		// full walk from scratch.
		items, nextSyncToken, err = s.collectPages("")
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	loc := time.UTC
	if cal.Timezone != "" {
		loc, err = time.LoadLocation(cal.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load calendar timezone %q: %w", cal.Timezone, err)
		}
	}

	var events []*Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		events, err = applyBatch(tx, cal, loc, items)
		if err != nil {
			return err
		}
		// The token belongs to the calendar and is only advanced once the
		// whole batch has applied.
		if err := tx.Model(cal).Update("events_sync_token", nextSyncToken).Error; err != nil {
			return fmt.Errorf("store sync token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cal.EventsSyncToken = nextSyncToken
	return events, nil
}

// collectPages walks the feed from the given sync token and accumulates all
// items across pages. The feed hands out NextSyncToken only with the final
// page.
func (s *Syncer) collectPages(syncToken string) ([]*calendar.Event, string, error) {
	var (
		items     []*calendar.Event
		pageToken string
	)
	for {
		resp, err := s.feed.ListEvents(pageToken, syncToken)
		if err != nil {
			return nil, "", err
		}
		items = append(items, resp.Items...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return items, resp.NextSyncToken, nil
		}
	}
}

// applyBatch folds the accumulated records into the store, in feed order.
// A record whose event id is already known is skipped untouched but still
// counted and linked to the calendar. A cancelled record aborts the batch.
func applyBatch(tx *gorm.DB, cal *Calendar, loc *time.Location, items []*calendar.Event) ([]*Event, error) {
	var events []*Event
	for _, record := range items {
		if record.Status == "cancelled" {
			return nil, applyCancellation(record)
		}

		event := &Event{}
		err := tx.Where("id = ?", record.Id).First(event).Error
		if gorm.IsRecordNotFoundError(err) {
			event, err = createEvent(tx, record, loc)
		}
		if err != nil {
			return nil, err
		}

		if err := tx.Model(event).Association("Calendars").Append(*cal).Error; err != nil {
			return nil, fmt.Errorf("link event %s to calendar: %w", event.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// applyCancellation is the policy for cancelled records: discard the whole
// batch. The existing Event is deliberately left in place; revisit here if
// cancellations should instead delete it.
func applyCancellation(record *calendar.Event) error {
	return fmt.Errorf("event %s: %w", record.Id, ErrEventCancelled)
}

func createEvent(tx *gorm.DB, record *calendar.Event, loc *time.Location) (*Event, error) {
	organiser, err := resolveOrganiser(tx, record)
	if err != nil {
		return nil, err
	}

	start, err := normalizeEventTime(record.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("event %s start: %w", record.Id, err)
	}
	end, err := normalizeEventTime(record.End, loc)
	if err != nil {
		return nil, fmt.Errorf("event %s end: %w", record.Id, err)
	}
	created, err := parseEventTime(record.Created)
	if err != nil {
		return nil, fmt.Errorf("event %s created: %w", record.Id, err)
	}
	updated, err := parseEventTime(record.Updated)
	if err != nil {
		return nil, fmt.Errorf("event %s updated: %w", record.Id, err)
	}

	event := &Event{
		ID:          record.Id,
		EventLink:   record.HtmlLink,
		Title:       record.Summary,
		Description: record.Description,
		Location:    record.Location,
		OrganiserID: organiser.ID,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		CreatedAt:   created.UTC(),
		UpdatedAt:   updated.UTC(),
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, fmt.Errorf("create event %s: %w", event.ID, err)
	}

	if len(record.Attendees) > 0 {
		if _, err := createAttendees(tx, event, record.Attendees); err != nil {
			return nil, err
		}
	}
	return event, nil
}

// getOrCreateCalendar upserts the local Calendar for (user, calendar id).
// Title and timezone are authoritative upstream and overwritten on every
// run; the sync token is only ever touched by the syncer.
func getOrCreateCalendar(db *gorm.DB, user *User, record *calendar.Calendar) (*Calendar, error) {
	cal := &Calendar{}
	err := db.Where("user_id = ? AND cal_id = ?", user.ID, record.Id).First(cal).Error
	switch {
	case err == nil:
		cal.Title = record.Summary
		cal.Timezone = record.TimeZone
		if err := db.Save(cal).Error; err != nil {
			return nil, fmt.Errorf("update calendar %s: %w", record.Id, err)
		}
	case gorm.IsRecordNotFoundError(err):
		cal = &Calendar{
			UserID:   user.ID,
			CalID:    record.Id,
			Title:    record.Summary,
			Timezone: record.TimeZone,
		}
		if err := db.Create(cal).Error; err != nil {
			return nil, fmt.Errorf("create calendar %s: %w", record.Id, err)
		}
	default:
		return nil, fmt.Errorf("look up calendar %s: %w", record.Id, err)
	}
	return cal, nil
}

func isGoogleStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
