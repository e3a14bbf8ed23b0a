// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/database"
)

// Store drivers.  The memory store keeps everything in process and
// needs no database settings.
const (
	StoreMySQL    = database.DriverMySQL
	StorePostgres = database.DriverPostgres
	StoreMemory   = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env  string // APP_ENV
	Port string // APP_PORT

	StoreDriver string           // STORE_DRIVER: mysql, postgres or memory
	DB          database.Options // DB_* settings, unused by the memory store
	AutoMigrate bool             // DB_AUTO_MIGRATE

	SeatCapacity  int            // SEAT_CAPACITY
	Location      *time.Location // APP_TIMEZONE, defines "today" for departure dates
	ManifestTitle string         // MANIFEST_TITLE

	JWTSecret        string // JWT_SECRET
	AccessTTLMin     int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays   int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost       int    // BCRYPT_COST
	RegistrationCode string // ADMIN_REGISTRATION_CODE, empty closes registration

	BootstrapEmail    string // BOOTSTRAP_ADMIN_EMAIL
	BootstrapPassword string // BOOTSTRAP_ADMIN_PASSWORD
	BootstrapName     string // BOOTSTRAP_ADMIN_NAME

	AMQPURL       string // RABBITMQ_URL or AMQP_URL
	EventsEnabled bool   // BOOKING_EVENTS_ENABLED

	SeedFile string // SEED_FILE

	Payment PaymentConfig
	Policy  PolicyConfig
}

// AccessTTL is the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and missing values cause the program
// to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8080"),

		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		AutoMigrate: envBool("DB_AUTO_MIGRATE", false),

		SeatCapacity:  envInt("SEAT_CAPACITY", 31),
		Location:      mustLocation("APP_TIMEZONE", "Africa/Accra"),
		ManifestTitle: envStr("MANIFEST_TITLE", "Passenger Manifest"),

		JWTSecret:        must("JWT_SECRET"),
		AccessTTLMin:     envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:   envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:       envInt("BCRYPT_COST", 12),
		RegistrationCode: os.Getenv("ADMIN_REGISTRATION_CODE"),

		BootstrapEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapName:     envStr("BOOTSTRAP_ADMIN_NAME", "Administrator"),

		AMQPURL:       amqpURL(),
		EventsEnabled: envBool("BOOKING_EVENTS_ENABLED", false),

		SeedFile: os.Getenv("SEED_FILE"),

		Payment: LoadPaymentConfig(),
		Policy:  PolicyConfig{File: os.Getenv("POLICY_FILE")},
	}

	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DB = database.Options{
			Driver:   database.DriverMySQL,
			User:     must("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			Host:     must("DB_HOST"),
			Port:     strconv.Itoa(mustInt("DB_PORT")),
			Name:     must("DB_NAME"),
		}
	case StorePostgres:
		cfg.DB = database.Options{
			Driver:   database.DriverPostgres,
			User:     must("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			Host:     must("DB_HOST"),
			Port:     strconv.Itoa(mustInt("DB_PORT")),
			Name:     must("DB_NAME"),
			SSLMode:  envStr("DB_SSLMODE", "disable"),
		}
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	if cfg.SeatCapacity < 1 {
		log.Fatalf("invalid SEAT_CAPACITY: %d", cfg.SeatCapacity)
	}
	return cfg
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func mustLocation(key, def string) *time.Location {
	name := envStr(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}
