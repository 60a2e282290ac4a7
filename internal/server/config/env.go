package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables win over it.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "JWT_SECRET_KEY")
	setString(&config.FirebaseCredentialsFile, "FIREBASE_SERVICE_ACCOUNT_PATH")
	setString(&config.FirebaseAPIKey, "FIREBASE_API_KEY")
	setString(&config.SMTPHost, "SMTP_HOST")
	setString(&config.SMTPPort, "SMTP_PORT")
	setString(&config.SMTPUser, "SMTP_USER")
	setString(&config.SMTPPassword, "SMTP_PASSWORD")
	setString(&config.MailFrom, "MAIL_FROM")
	setString(&config.RedisAddr, "REDIS_ADDR")

	if v := os.Getenv("JWT_EXPIRE_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil {
			config.SessionTokenTTL = time.Duration(minutes) * time.Minute
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
