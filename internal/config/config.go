package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string

	PixKey           string
	PixMerchantName  string
	PixMerchantCity  string
	PixWebhookSecret string
	PixAPIBaseURL    string

	SendgridAPIKey    string
	SendgridFromEmail string
	SendgridFromName  string
	TwilioAccountSid  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	Currency       string
	PlatformFeeBps int           // platform fee in basis points of the subtotal
	HoldWindow     time.Duration // unpaid reservations block availability for this long
	PaymentGrace   time.Duration // recent payment-record activity postpones the expiry sweep
	CancelCutoff   time.Duration // confirmed reservations can be canceled up to this long before check-in
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeSuccessURL:    getenv("STRIPE_SUCCESS_URL", "http://localhost:3000/hangarshare/booking/confirmation?session_id={CHECKOUT_SESSION_ID}"),
		StripeCancelURL:     getenv("STRIPE_CANCEL_URL", "http://localhost:3000/hangarshare/booking/failed?session_id={CHECKOUT_SESSION_ID}"),

		PixKey:           os.Getenv("PIX_KEY"),
		PixMerchantName:  getenv("PIX_MERCHANT_NAME", "HangarShare"),
		PixMerchantCity:  getenv("PIX_MERCHANT_CITY", "SAO PAULO"),
		PixWebhookSecret: os.Getenv("PIX_WEBHOOK_SECRET"),
		PixAPIBaseURL:    os.Getenv("PIX_API_BASE_URL"),

		SendgridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendgridFromEmail: getenv("SENDGRID_FROM_EMAIL", "reservas@hangarshare.com.br"),
		SendgridFromName:  getenv("SENDGRID_FROM_NAME", "HangarShare"),
		TwilioAccountSid:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),

		Currency:       getenv("CURRENCY", "brl"),
		PlatformFeeBps: getenvInt("PLATFORM_FEE_BPS", 1000),
		HoldWindow:     getenvDuration("HOLD_WINDOW", 30*time.Minute),
		PaymentGrace:   getenvDuration("PAYMENT_GRACE", 5*time.Minute),
		CancelCutoff:   getenvDuration("CANCEL_CUTOFF", 12*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
