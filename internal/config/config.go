package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values

	"github.com/avioline/flight-seat-reservation/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database and JWT settings are required;
// everything else has a default so a bare `.env` with five lines is
// enough to boot a development server.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Flight model.Flight // static descriptor of the managed flight

	FareFirstCents   uint32 // price of a first-class seat
	FareEconomyCents uint32 // price of an economy seat

	// HoldTTL is how long a seat may stay held before the expiry worker
	// reclaims it.  Zero disables reclamation entirely, which matches the
	// behavior of the legacy system this one replaces.
	HoldTTL time.Duration
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            getenvDefault("APP_ENV", "dev"),
		Port:           getenvDefault("APP_PORT", "3000"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   intDefault("ACCESS_TOKEN_TTL_MIN", 720), // the legacy server issued 12h tokens
		RefreshTTLDays: intDefault("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:     intDefault("BCRYPT_COST", 10),
		Flight: model.Flight{
			Number:      getenvDefault("FLIGHT_NUMBER", "QTR-0810"),
			Kind:        getenvDefault("FLIGHT_KIND", "one-way"),
			Origin:      getenvDefault("FLIGHT_ORIGIN", "Mexico City (MEX)"),
			Destination: getenvDefault("FLIGHT_DESTINATION", "Doha (DOH), Qatar"),
			Date:        getenvDefault("FLIGHT_DATE", "08/10/25"),
			Time:        getenvDefault("FLIGHT_TIME", "20:00"),
			Gate:        getenvDefault("FLIGHT_GATE", "Terminal 2, Gate 2"),
		},
		FareFirstCents:   uint32(intDefault("FARE_FIRST_CENTS", 120000)),
		FareEconomyCents: uint32(intDefault("FARE_ECONOMY_CENTS", 65950)),
		HoldTTL:          durDefault("HOLD_TTL", 0),
	}
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

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func durDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
