package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Register(c *gin.Context) {
	var json struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := HashPassword(json.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	user := User{Email: json.Email, Password: hashedPassword}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	}

	token, err := GenerateJWT(user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func Login(c *gin.Context) {
	var json struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user User
	if err := db.Where("email = ?", json.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !CheckPasswordHash(json.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := GenerateJWT(user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// FetchEvents registers the user's primary calendar and pulls any events the
// feed has accumulated since the stored sync token.
func FetchEvents(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if len(user.CalendarToken) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google Calendar not connected"})
		return
	}

	feed, err := NewGoogleFeed(db, googleOAuthConf, user)
	if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to reach Google Calendar"})
		return
	}

	events, err := NewSyncer(db, feed).Sync(user)
	if errors.Is(err, ErrEventCancelled) {
		c.JSON(http.StatusOK, gin.H{"synced": 0, "status": "aborted"})
		return
	}
	if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"synced": len(events)})
}

// Analytics reports time-usage insights over the user's synced meetings.
func Analytics(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ca, err := NewCalendarAnalytics(db, user, time.Time{}, time.Time{})
	if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "No synced calendar"})
		return
	}

	now := time.Now()
	last3Months := now.AddDate(0, -3, 0)
	last12Months := now.AddDate(0, -12, 0)

	monthStats := ca.TotalTimeSpentByMonth(last12Months, time.Time{})
	weekStats := ca.TotalTimeSpentByWeek(last12Months, time.Time{})

	topAttendees, err := ca.MaxMeetingsWith()
	if err != nil {
		log.Println(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analytics failed"})
		return
	}
	if len(topAttendees) > 3 {
		topAttendees = topAttendees[:3]
	}

	c.JSON(http.StatusOK, gin.H{
		"month": gin.H{
			"busy":          busiestBucket(monthStats),
			"relax":         mostRelaxedBucket(monthStats),
			"last_3_months": ca.TotalTimeSpentByMonth(last3Months, time.Time{}),
		},
		"week": gin.H{
			"busy":         busiestBucket(weekStats),
			"relax":        mostRelaxedBucket(weekStats),
			"avg_time":     ca.AvgTimeSpentByWeek(last12Months, time.Time{}),
			"meetings_cnt": ca.AvgMeetingsByWeek(last12Months, time.Time{}),
		},
		"top_attendee": topAttendees,
		"time_spent": gin.H{
			"recruit": ca.TimeSpentOn([]string{"Recruitment", "Interview", "Resume"}),
			"standup": ca.TimeSpentOn([]string{"standup", "Stand up", "catch up"}),
			"zoom":    ca.TimeSpentOn([]string{"Zoom call"}),
		},
	})
}
