package config

import (
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const (
	DATE_FORMAT = "2006-01-02"
	TIME_FORMAT = "15:04"

	// Fallbacks when no reservation_settings row resolves.
	DEFAULT_DURATION_MINUTES          = 90
	DEFAULT_CANCELLATION_WINDOW_HOURS = 12

	// Absolute lifetime of a reservation intent token.
	INTENT_TOKEN_TTL_MINUTES = 15
)

var API_ENV = os.Getenv("API_ENV")

// WebhookSecret is the shared secret the payment provider signs event
// bodies with. An empty value disables verification, which is only
// acceptable outside production.
func WebhookSecret() string {
	return os.Getenv("PAYMENT_WEBHOOK_SECRET")
}

// IntentSecret signs reservation intent tokens. Falls back to the JWT
// secret so a single-key deployment keeps working.
func IntentSecret() []byte {
	if s := os.Getenv("INTENT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte(os.Getenv("JWT_SECRET"))
}

// SMTPFrom is the sender address for outbound notifications; empty
// disables them.
func SMTPFrom() string {
	return os.Getenv("SMTP_FROM")
}

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}
