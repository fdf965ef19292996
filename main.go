// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ariebrainware/mindery/config"
	_ "github.com/ariebrainware/mindery/docs"
	"github.com/ariebrainware/mindery/endpoint"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title                       Mindery API
// @version                     1.0
// @description                 Counselling portal API: doctor schedules, slot availability and appointment booking.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT token.
func main() {
	// Load the configuration
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatalf("JWTSECRET must be set")
	}
	util.SetJWTSecret(cfg.JWTSecret)

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		log.Fatalf("Error seeding roles: %v", err)
	}
	if err := model.SeedAssessments(db); err != nil {
		log.Fatalf("Error seeding assessments: %v", err)
	}

	// Redis is optional: sessions, slots and rate limits fall back to the DB
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
	}
	if path := os.Getenv("GEOIP_DB_PATH"); path != "" {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) && os.Getenv("GEOIP_DB_URL") != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if _, err := util.DownloadGeoIPWithRequest(ctx, util.DownloadRequest{URL: os.Getenv("GEOIP_DB_URL"), DestPath: path}); err != nil {
				log.Printf("GeoIP download failed: %v", err)
			} else if err := util.ValidateGeoIP(path); err != nil {
				log.Printf("Downloaded GeoIP database is unreadable: %v", err)
			}
			cancel()
		}
		if err := util.InitGeoIP(path); err != nil {
			log.Printf("GeoIP disabled: %v", err)
		}
		defer util.CloseGeoIP()
	}
	util.InitUserContactCacheFromEnv()
	util.SetSecurityLoggerDB(db)
	endpoint.SetMailer(util.NewMailer(cfg))

	// Create a Gin router with default middleware
	router := gin.Default()
	endpoint.RegisterRoutes(router, db)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
