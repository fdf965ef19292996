package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds the application's configuration values.
type Config struct {
	AppName  string `json:"appname"`
	AppEnv   string `json:"appenv"`
	AppPort  uint16 `json:"appport"`
	GinMode  string `json:"ginmode"`
	DBDriver string `json:"dbdriver"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUSER   string `json:"dbuser"`
	DBPass   string `json:"dbpass"`
	// Timezone is the IANA zone slot dates and wall-clock times are read in.
	Timezone  string `json:"timezone"`
	JWTSecret string `json:"-"`

	SMTPHost string `json:"smtphost"`
	SMTPPort int    `json:"smtpport"`
	SMTPUser string `json:"smtpuser"`
	SMTPPass string `json:"-"`
	SMTPFrom string `json:"smtpfrom"`

	loc *time.Location
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded, using environment: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))

		config = &Config{
			AppName:   getEnv("APPNAME", "mindery"),
			AppEnv:    os.Getenv("APPENV"),
			AppPort:   uint16(appPort),
			GinMode:   os.Getenv("GINMODE"),
			DBDriver:  strings.ToLower(getEnv("DBDRIVER", DriverMySQL)),
			DBHost:    os.Getenv("DBHOST"),
			DBPort:    uint16(dbPort),
			DBName:    os.Getenv("DBNAME"),
			DBUSER:    os.Getenv("DBUSER"),
			DBPass:    os.Getenv("DBPASS"),
			Timezone:  getEnv("TIMEZONE", "Asia/Jakarta"),
			JWTSecret: os.Getenv("JWTSECRET"),
			SMTPHost:  os.Getenv("SMTP_HOST"),
			SMTPPort:  smtpPort,
			SMTPUser:  os.Getenv("SMTP_USER"),
			SMTPPass:  os.Getenv("SMTP_PASS"),
			SMTPFrom:  os.Getenv("SMTP_FROM"),
		}
		config.loc = resolveLocation(config.Timezone)
	})
	return config
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsTest reports whether the process runs under APPENV=test. The environment
// is read directly so tests can flip it after the singleton is loaded.
func IsTest() bool {
	return os.Getenv("APPENV") == "test"
}

// Location returns the configured timezone. LoadConfig resolves it once; a
// Config built by hand resolves it on each call. An unknown zone falls back
// to UTC so availability is still computed deterministically.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.UTC
	}
	if c.loc != nil {
		return c.loc
	}
	return resolveLocation(c.Timezone)
}

func resolveLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, falling back to UTC: %v", tz, err)
		return time.UTC
	}
	return loc
}

// DSN builds the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUSER, c.DBPass, c.DBName)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC", c.DBUSER, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// ConnectDB opens the database selected by DBDRIVER. Under APPENV=test a
// shared in-memory SQLite database is used instead.
func ConnectDB() (*gorm.DB, error) {
	cfg := LoadConfig()
	gormCfg := &gorm.Config{}

	if IsTest() {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
		return gorm.Open(sqlite.Open("file:mindery_test?mode=memory&cache=shared"), gormCfg)
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	return db, nil
}
