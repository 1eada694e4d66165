package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database   Database   `envPrefix:"DATABASE_"`
	Auth       Auth       `envPrefix:"AUTH_"`
	Checkout   Checkout   `envPrefix:"CHECKOUT_"`
	Razorpay   Razorpay   `envPrefix:"RAZORPAY_"`
	Paypal     Paypal     `envPrefix:"PAYPAL_"`
	Storage    Storage    `envPrefix:"STORAGE_"`
	ImageKit   ImageKit   `envPrefix:"IMAGEKIT_"`
	GCS        GCS        `envPrefix:"GCS_"`
	Reconciler Reconciler `envPrefix:"RECONCILER_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql, postgres
	URL             string        `env:"URL" envDefault:"snaptrade.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

// Auth holds the verification side of the external session provider.
type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	AdminRole string `env:"ADMIN_ROLE" envDefault:"admin"`
}

type Checkout struct {
	Gateway           string        `env:"GATEWAY" envDefault:"razorpay"` // razorpay, paypal
	Currency          string        `env:"CURRENCY" envDefault:"INR"`
	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
	IdempotencyWindow time.Duration `env:"IDEMPOTENCY_WINDOW" envDefault:"10m"`
}

type Razorpay struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.razorpay.com"`
	KeyID         string `env:"KEY_ID"`
	KeySecret     string `env:"KEY_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

type Storage struct {
	Provider          string `env:"PROVIDER" envDefault:"imagekit"` // imagekit, gcs
	DeleteConcurrency int    `env:"DELETE_CONCURRENCY" envDefault:"4"`
}

type ImageKit struct {
	BaseApiURL  string        `env:"BASE_API_URL" envDefault:"https://api.imagekit.io"`
	PublicKey   string        `env:"PUBLIC_KEY"`
	PrivateKey  string        `env:"PRIVATE_KEY"`
	URLEndpoint string        `env:"URL_ENDPOINT"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"30m"`
}

type GCS struct {
	Bucket          string        `env:"BUCKET"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	UploadPrefix    string        `env:"UPLOAD_PREFIX" envDefault:"products"`
	UploadURLTTL    time.Duration `env:"UPLOAD_URL_TTL" envDefault:"15m"`
}

type Reconciler struct {
	Enabled     bool   `env:"ENABLED" envDefault:"true"`
	Schedule    string `env:"SCHEDULE" envDefault:"@every 10m"`
	MaxAttempts int    `env:"MAX_ATTEMPTS" envDefault:"5"`
	BatchSize   int    `env:"BATCH_SIZE" envDefault:"50"`
}
