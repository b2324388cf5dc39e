package main

import (
	"fmt"

	"github.com/jinzhu/gorm"
	calendar "google.golang.org/api/calendar/v3"
)

// Google substitutes this address when the organiser's identity is hidden,
// e.g. for events copied from group calendars.
const unknownOrganiser = "unknownorganizer@calendar.google.com"

// resolveOrganiser returns the Account behind an event's organiser field,
// falling back to the creator when the organiser is absent or hidden.
func resolveOrganiser(tx *gorm.DB, record *calendar.Event) (*Account, error) {
	var email string
	if record.Organizer != nil && record.Organizer.Email != "" {
		email = record.Organizer.Email
		if email == unknownOrganiser && record.Creator != nil {
			email = record.Creator.Email
		}
	} else if record.Creator != nil {
		email = record.Creator.Email
	}
	if email == "" {
		return nil, fmt.Errorf("event %s has no organiser or creator email", record.Id)
	}
	return getOrCreateAccount(tx, email)
}

// getOrCreateAccount returns the Account for an email, creating it on first
// sight. A new Account is linked to a local User with the same email if one
// exists; the link is fixed at creation and never re-resolved.
func getOrCreateAccount(tx *gorm.DB, email string) (*Account, error) {
	account := &Account{}
	err := tx.Where("email = ?", email).First(account).Error
	if err == nil {
		return account, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("look up account %s: %w", email, err)
	}

	account = &Account{Email: email}
	if user := findUserByEmail(tx, email); user != nil {
		account.UserID = &user.ID
	}
	if err := tx.Create(account).Error; err != nil {
		return nil, fmt.Errorf("create account %s: %w", email, err)
	}
	return account, nil
}

func findUserByEmail(tx *gorm.DB, email string) *User {
	user := &User{}
	if err := tx.Where("email = ?", email).First(user).Error; err != nil {
		return nil
	}
	return user
}
