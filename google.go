package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/umeshror/calendar-analytics/config"
)

var googleOAuthConf *oauth2.Config

func InitGoogle(cfg config.Config) {
	googleOAuthConf = &oauth2.Config{
		RedirectURL:  cfg.GoogleRedirectURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			calendar.CalendarReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// TokenProvider yields a currently-valid OAuth token for a user, refreshing
// and persisting it transparently when the held one has expired.
type TokenProvider interface {
	Token(user *User) (*oauth2.Token, error)
	// Refresh discards the held access token and obtains a new one, for
	// when the feed rejects a token before its recorded expiry.
	Refresh(user *User) (*oauth2.Token, error)
}

type dbTokenProvider struct {
	db   *gorm.DB
	conf *oauth2.Config
}

func (p *dbTokenProvider) Token(user *User) (*oauth2.Token, error) {
	stored, err := p.stored(user)
	if err != nil {
		return nil, err
	}
	return p.renew(user, stored)
}

func (p *dbTokenProvider) Refresh(user *User) (*oauth2.Token, error) {
	stored, err := p.stored(user)
	if err != nil {
		return nil, err
	}
	stored.AccessToken = ""
	stored.Expiry = time.Now().Add(-time.Minute)
	return p.renew(user, stored)
}

func (p *dbTokenProvider) stored(user *User) (*oauth2.Token, error) {
	token := &oauth2.Token{}
	if err := json.Unmarshal(user.CalendarToken, token); err != nil {
		return nil, fmt.Errorf("decode stored token for %s: %w", user.Email, err)
	}
	return token, nil
}

func (p *dbTokenProvider) renew(user *User, stored *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := p.conf.TokenSource(context.Background(), stored).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token for %s: %w", user.Email, err)
	}
	if fresh.AccessToken != stored.AccessToken {
		raw, err := json.Marshal(fresh)
		if err != nil {
			return nil, err
		}
		user.CalendarToken = raw
		if err := p.db.Model(user).Update("calendar_token", json.RawMessage(raw)).Error; err != nil {
			log.Println("failed to persist refreshed token:", err.Error())
		}
	}
	return fresh, nil
}

// googleFeed is the production CalendarFeed over the user's primary Google
// calendar.
type googleFeed struct {
	provider TokenProvider
	conf     *oauth2.Config
	user     *User
	service  *calendar.Service
}

func NewGoogleFeed(db *gorm.DB, conf *oauth2.Config, user *User) (*googleFeed, error) {
	feed := &googleFeed{
		provider: &dbTokenProvider{db: db, conf: conf},
		conf:     conf,
		user:     user,
	}
	if err := feed.connect(feed.provider.Token); err != nil {
		return nil, err
	}
	return feed, nil
}

func (f *googleFeed) connect(get func(*User) (*oauth2.Token, error)) error {
	token, err := get(f.user)
	if err != nil {
		return err
	}
	client := f.conf.Client(context.Background(), token)
	srv, err := calendar.NewService(context.Background(), option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("build calendar service: %w", err)
	}
	f.service = srv
	return nil
}

func (f *googleFeed) PrimaryCalendar() (*calendar.Calendar, error) {
	var record *calendar.Calendar
	err := f.withAuthRetry(func() error {
		var err error
		record, err = f.service.Calendars.Get("primary").Do()
		return err
	})
	return record, err
}

func (f *googleFeed) ListEvents(pageToken, syncToken string) (*calendar.Events, error) {
	var resp *calendar.Events
	err := f.withAuthRetry(func() error {
		call := f.service.Events.List("primary")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if syncToken != "" {
			call = call.SyncToken(syncToken)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	return resp, err
}

// withAuthRetry retries a rejected call exactly once after forcing a token
// refresh, then surfaces the error.
func (f *googleFeed) withAuthRetry(call func() error) error {
	err := call()
	if !isGoogleStatus(err, http.StatusUnauthorized) {
		return err
	}
	if rerr := f.connect(f.provider.Refresh); rerr != nil {
		return rerr
	}
	return call()
}

func GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie("oauthstate", state, 300, "/", "", false, true)
	url := googleOAuthConf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func GoogleCallback(c *gin.Context) {
	state, err := c.Cookie("oauthstate")
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code not provided"})
		return
	}

	token, err := googleOAuthConf.Exchange(context.Background(), code)
	if err != nil {
		log.Printf("Failed to exchange %s\n", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to exchange token"})
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		log.Printf("Failed to fetch %s\n", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get user info"})
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		Email string `json:"email"`
		ID    string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse user info"})
		return
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store token"})
		return
	}

	user := &User{}
	err = db.Where("provider_id = ?", userInfo.ID).First(user).Error
	if gorm.IsRecordNotFoundError(err) {
		// A user who registered with a password keeps their row and gains
		// the Google link.
		err = db.Where("email = ?", userInfo.Email).First(user).Error
	}
	if gorm.IsRecordNotFoundError(err) {
		user = &User{Email: userInfo.Email}
	} else if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	user.Provider = Google
	user.ProviderID = userInfo.ID
	user.CalendarToken = tokenJSON
	if err := db.Save(user).Error; err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	jwtToken, err := GenerateJWT(user.Email)
	if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	c.SetCookie("token", jwtToken, int((time.Hour * 24 * 7).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, "/")
}
