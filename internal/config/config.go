package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Auth        AuthConfig
	Mail        MailConfig
	Storage     StorageConfig
	Certificate CertificateConfig
	Payment     PaymentConfig
	Redis       RedisConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	MigrationsDir   string
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

type MailConfig struct {
	AWSRegion      string
	FromAddress    string
	ResendCooldown time.Duration
}

// StorageConfig selects the artifact store. Driver "local" writes under
// LocalDir; "s3" uploads to Bucket in AWSRegion.
type StorageConfig struct {
	Driver    string
	LocalDir  string
	Bucket    string
	AWSRegion string
}

type CertificateConfig struct {
	FontPath        string // TTF used for text overlays; empty = built-in face
	VerifyURLBase   string // base URL encoded into the certificate QR code
	RetryInterval   time.Duration
	DownloadBaseURL string
}

type PaymentConfig struct {
	GatewayBaseURL    string
	ClientID          string
	SecretKey         string
	InvoicePrefix     string
	ReconcileInterval time.Duration
}

type RedisConfig struct {
	Addr     string // empty disables the email queue; mail is sent inline
	Password string
	DB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "eventra"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
		},
		Mail: MailConfig{
			AWSRegion:      getEnv("AWS_REGION", "ap-southeast-1"),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "no-reply@eventra.local"),
			ResendCooldown: getEnvAsDuration("MAIL_RESEND_COOLDOWN", 15*time.Minute),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			LocalDir:  getEnv("STORAGE_LOCAL_DIR", "storage"),
			Bucket:    getEnv("STORAGE_S3_BUCKET", ""),
			AWSRegion: getEnv("AWS_REGION", "ap-southeast-1"),
		},
		Certificate: CertificateConfig{
			FontPath:        getEnv("CERTIFICATE_FONT_PATH", ""),
			VerifyURLBase:   getEnv("CERTIFICATE_VERIFY_URL", "https://eventra.local/certificates"),
			RetryInterval:   getEnvAsDuration("CERTIFICATE_RETRY_INTERVAL", 30*time.Minute),
			DownloadBaseURL: getEnv("CERTIFICATE_DOWNLOAD_URL", ""),
		},
		Payment: PaymentConfig{
			GatewayBaseURL:    getEnv("PAYMENT_GATEWAY_URL", ""),
			ClientID:          getEnv("PAYMENT_CLIENT_ID", ""),
			SecretKey:         getEnv("PAYMENT_SECRET_KEY", ""),
			InvoicePrefix:     getEnv("PAYMENT_INVOICE_PREFIX", "INV"),
			ReconcileInterval: getEnvAsDuration("PAYMENT_RECONCILE_INTERVAL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Storage.Driver == "s3" && cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("STORAGE_S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
