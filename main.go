package main

import (
	"github.com/gin-gonic/gin"

	"github.com/umeshror/calendar-analytics/config"
)

func main() {
	cfg := config.LoadConfig()
	jwtKey = []byte(cfg.JWTSecret)

	InitDB(cfg)
	InitGoogle(cfg)

	r := gin.Default()

	api := r.Group("/api")
	{
		api.POST("/register", Register)
		api.POST("/login", Login)
		api.GET("/fetch-events", FetchEvents)
		api.GET("/analytics", Analytics)
	}

	// OAuth routes
	r.GET("/auth/google/login", GoogleLogin)
	r.GET("/auth/google/callback", GoogleCallback)

	r.Run(cfg.ListenAddr)
}
