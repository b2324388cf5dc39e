package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

const defaultLookbackMonths = 24

// eventRow is the normalized event table the aggregations work on: one row
// per event with instants converted to the calendar's timezone and the
// duration truncated to whole seconds. It is materialized once per request
// and passed by value to each aggregation.
type eventRow struct {
	ID      string
	Title   string
	Start   time.Time
	End     time.Time
	Seconds int64
}

// CalendarAnalytics gives insights over a user's synced meetings.
type CalendarAnalytics struct {
	db   *gorm.DB
	user *User
	loc  *time.Location
	rows []eventRow
}

// NewCalendarAnalytics loads the user's events with a start instant inside
// [from, to). Zero bounds default to a 24 month lookback ending now.
func NewCalendarAnalytics(db *gorm.DB, user *User, from, to time.Time) (*CalendarAnalytics, error) {
	cal := &Calendar{}
	if err := db.Where("user_id = ?", user.ID).First(cal).Error; err != nil {
		return nil, fmt.Errorf("no calendar for user %s: %w", user.Email, err)
	}

	loc := time.UTC
	if cal.Timezone != "" {
		l, err := time.LoadLocation(cal.Timezone)
		if err == nil {
			loc = l
		}
	}

	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -defaultLookbackMonths, 0)
	}

	var events []Event
	err := db.
		Joins("JOIN calendar_events ON calendar_events.event_id = events.id").
		Where("calendar_events.calendar_id = ?", cal.ID).
		Where("events.start_time >= ? AND events.start_time < ?", from, to).
		Order("events.start_time").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load events for user %s: %w", user.Email, err)
	}

	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = eventRow{
			ID:      e.ID,
			Title:   e.Title,
			Start:   e.StartTime.In(loc),
			End:     e.EndTime.In(loc),
			Seconds: int64(e.EndTime.Sub(e.StartTime) / time.Second),
		}
	}

	return &CalendarAnalytics{db: db, user: user, loc: loc, rows: rows}, nil
}

// TotalTimeSpentByMonth sums meeting seconds per calendar month name,
// e.g. {"January": 261000}.
func (ca *CalendarAnalytics) TotalTimeSpentByMonth(from, to time.Time) map[string]int64 {
	return totalTimeSpentByMonth(filterRows(ca.rows, from, to))
}

// TotalTimeSpentByWeek sums meeting seconds per two-digit week-of-year
// bucket, e.g. {"01": 261000}.
func (ca *CalendarAnalytics) TotalTimeSpentByWeek(from, to time.Time) map[string]int64 {
	return totalTimeSpentByWeek(filterRows(ca.rows, from, to))
}

// AvgTimeSpentByWeek returns the mean meeting seconds per week bucket.
func (ca *CalendarAnalytics) AvgTimeSpentByWeek(from, to time.Time) map[string]float64 {
	return avgTimeSpentByWeek(filterRows(ca.rows, from, to))
}

// AvgMeetingsByWeek returns the meeting count per week bucket.
func (ca *CalendarAnalytics) AvgMeetingsByWeek(from, to time.Time) map[string]int {
	return avgMeetingsByWeek(filterRows(ca.rows, from, to))
}

// TimeSpentOn returns the total seconds of meetings whose title contains any
// of the given keywords (case-sensitive).
func (ca *CalendarAnalytics) TimeSpentOn(keywords []string) int64 {
	return timeSpentOn(ca.rows, keywords)
}

// AttendeeCount is one co-attendee with the number of shared meetings.
type AttendeeCount struct {
	Email string `json:"email"`
	Count int    `json:"count"`
}

// MaxMeetingsWith returns the people the user met most across the window,
// excluding the user themselves, most frequent first.
func (ca *CalendarAnalytics) MaxMeetingsWith() ([]AttendeeCount, error) {
	if len(ca.rows) == 0 {
		return nil, nil
	}
	ids := make([]string, len(ca.rows))
	for i, row := range ca.rows {
		ids[i] = row.ID
	}

	var counts []AttendeeCount
	err := ca.db.Table("attendees").
		Select("accounts.email AS email, count(*) AS count").
		Joins("JOIN accounts ON accounts.id = attendees.account_id").
		Where("attendees.event_id IN (?)", ids).
		Where("accounts.email <> ?", ca.user.Email).
		Group("accounts.email").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count co-attendees: %w", err)
	}
	return counts, nil
}

// filterRows keeps rows starting inside the given bounds; zero bounds are
// open ends. The from bound is exclusive, stricter than the inclusive
// materialization window, so per-period breakdowns drop rows starting
// exactly on it.
func filterRows(rows []eventRow, from, to time.Time) []eventRow {
	var out []eventRow
	for _, row := range rows {
		if !from.IsZero() && !row.Start.After(from) {
			continue
		}
		if !to.IsZero() && !row.Start.Before(to) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func totalTimeSpentByMonth(rows []eventRow) map[string]int64 {
	stats := make(map[string]int64)
	for _, row := range rows {
		stats[row.Start.Month().String()] += row.Seconds
	}
	return stats
}

func totalTimeSpentByWeek(rows []eventRow) map[string]int64 {
	stats := make(map[string]int64)
	for _, row := range rows {
		stats[weekBucket(row.Start)] += row.Seconds
	}
	return stats
}

func avgTimeSpentByWeek(rows []eventRow) map[string]float64 {
	sums := make(map[string]int64)
	counts := make(map[string]int)
	for _, row := range rows {
		bucket := weekBucket(row.Start)
		sums[bucket] += row.Seconds
		counts[bucket]++
	}
	stats := make(map[string]float64, len(sums))
	for bucket, sum := range sums {
		stats[bucket] = float64(sum) / float64(counts[bucket])
	}
	return stats
}

func avgMeetingsByWeek(rows []eventRow) map[string]int {
	stats := make(map[string]int)
	for _, row := range rows {
		stats[weekBucket(row.Start)]++
	}
	return stats
}

func timeSpentOn(rows []eventRow, keywords []string) int64 {
	var total int64
	for _, row := range rows {
		for _, keyword := range keywords {
			if strings.Contains(row.Title, keyword) {
				total += row.Seconds
				break
			}
		}
	}
	return total
}

// weekBucket is the Monday-first week of year, zero-padded to two digits.
// Days before the year's first Monday land in week "00".
func weekBucket(t time.Time) string {
	weekday := (int(t.Weekday()) + 6) % 7
	week := (t.YearDay() - 1 - weekday + 7) / 7
	return fmt.Sprintf("%02d", week)
}

// busiestBucket returns the key with the largest value; ties go to the first
// key in ascending order.
func busiestBucket(stats map[string]int64) string {
	return pickBucket(stats, func(v, best int64) bool { return v > best })
}

// mostRelaxedBucket returns the key with the smallest value; ties go to the
// first key in ascending order.
func mostRelaxedBucket(stats map[string]int64) string {
	return pickBucket(stats, func(v, best int64) bool { return v < best })
}

func pickBucket(stats map[string]int64, better func(v, best int64) bool) string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var picked string
	for i, key := range keys {
		if i == 0 || better(stats[key], stats[picked]) {
			picked = key
		}
	}
	return picked
}
