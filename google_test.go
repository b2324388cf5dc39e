package main

import (
	"errors"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

type fakeTokenProvider struct {
	tokenCalls   int
	refreshCalls int
}

func (p *fakeTokenProvider) Token(user *User) (*oauth2.Token, error) {
	p.tokenCalls++
	return &oauth2.Token{AccessToken: "access-token"}, nil
}

func (p *fakeTokenProvider) Refresh(user *User) (*oauth2.Token, error) {
	p.refreshCalls++
	return &oauth2.Token{AccessToken: "refreshed-token"}, nil
}

func newRetryTestFeed(t *testing.T) (*googleFeed, *fakeTokenProvider) {
	t.Helper()
	provider := &fakeTokenProvider{}
	feed := &googleFeed{
		provider: provider,
		conf:     &oauth2.Config{},
		user:     &User{Email: "admin@admin.com"},
	}
	if err := feed.connect(provider.Token); err != nil {
		t.Fatalf("connect() returned an error: %v", err)
	}
	return feed, provider
}

func TestWithAuthRetry_RefreshesOnce(t *testing.T) {
	feed, provider := newRetryTestFeed(t)

	// The feed rejects the first attempt, then accepts the refreshed token.
	attempts := 0
	err := feed.withAuthRetry(func() error {
		attempts++
		if attempts == 1 {
			return &googleapi.Error{Code: 401, Message: "Invalid Credentials"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withAuthRetry() returned an error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 call attempts, got %d", attempts)
	}
	if provider.refreshCalls != 1 {
		t.Errorf("Expected exactly one forced refresh, got %d", provider.refreshCalls)
	}
}

func TestWithAuthRetry_SurfacesRepeatedRejection(t *testing.T) {
	feed, provider := newRetryTestFeed(t)

	attempts := 0
	err := feed.withAuthRetry(func() error {
		attempts++
		return &googleapi.Error{Code: 401, Message: "Invalid Credentials"}
	})
	if !isGoogleStatus(err, 401) {
		t.Fatalf("Expected the rejection surfaced after one retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected exactly 2 call attempts, got %d", attempts)
	}
	if provider.refreshCalls != 1 {
		t.Errorf("Expected exactly one refresh, got %d", provider.refreshCalls)
	}
}

func TestWithAuthRetry_OtherErrorsPassThrough(t *testing.T) {
	feed, provider := newRetryTestFeed(t)

	feedDown := errors.New("connection reset")
	attempts := 0
	err := feed.withAuthRetry(func() error {
		attempts++
		return feedDown
	})
	if !errors.Is(err, feedDown) {
		t.Fatalf("Expected the feed error unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt for a non-auth error, got %d", attempts)
	}
	if provider.refreshCalls != 0 {
		t.Errorf("Expected no refresh for a non-auth error, got %d", provider.refreshCalls)
	}
}
