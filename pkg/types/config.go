package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"bloodlink"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`

	// Used to build deep links in notifications
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:3000"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`
	CognitoRoleClaim  string `envconfig:"COGNITO_ROLE_CLAIM" default:"custom:role"`

	// Auth Configuration
	CookieName       string `envconfig:"SESSION_COOKIE_NAME" default:"session_id"`
	SessionMaxAgeSec int    `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Email channel. Leaving user/pass empty disables email.
	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPass     string `envconfig:"SMTP_PASS"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"BloodLink AI"`

	// Push channel. Leaving any of these empty disables push.
	FirebaseProjectID   string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseClientEmail string `envconfig:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey  string `envconfig:"FIREBASE_PRIVATE_KEY"`

	// Donor profile images
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	// Matching
	DefaultDistanceLimitKm int  `envconfig:"DEFAULT_DISTANCE_LIMIT_KM" default:"50"`
	MatchTimeoutSec        uint `envconfig:"MATCH_TIMEOUT_SEC" default:"20"`
	EmailConcurrency       int  `envconfig:"EMAIL_CONCURRENCY" default:"8"`
}
