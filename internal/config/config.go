package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// TrustedProxies may set X-Forwarded-For; empty trusts none, so
	// per-IP rate limits key on the socket address.
	TrustedProxies []string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
	MaxFileBytes  int64
	MaxFiles      int
}

type SecurityConfig struct {
	JWTSecret         string
	JWTTTL            time.Duration
	ResetSecret       string
	ResetTTL          time.Duration
	BcryptCost        int
	ResetPasswordLink string
}

type AuthConfig struct {
	RequireVerified   bool
	OTPTTL            time.Duration
	OTPSweepRetention time.Duration
}

type MailConfig struct {
	Host       string
	User       string
	Password   string
	From       string
	SkipVerify bool
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// SeedConfig describes the super admin account created on startup.
type SeedConfig struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Auth             AuthConfig
	Mail             MailConfig
	Stripe           StripeConfig
	RateLimit        RateLimitConfig
	Seed             SeedConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would let session and reset tokens
// share a signing domain.
func (c *AppConfig) Validate() error {
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwtsecret is required")
	}
	if c.Security.ResetSecret == "" {
		return errors.New("security.resetsecret is required")
	}
	if c.Security.JWTSecret == c.Security.ResetSecret {
		return errors.New("security.resetsecret must differ from security.jwtsecret")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.readheadertimeout", "5s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.trustedproxies", []string{})

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolsize", 10)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "launchpad-uploads")
	v.SetDefault("storage.usessl", true)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.maxfilebytes", 50*1024*1024)
	v.SetDefault("storage.maxfiles", 20)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.jwtttl", "720h")
	v.SetDefault("security.resetsecret", "")
	v.SetDefault("security.resetttl", "15m")
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.resetpasswordlink", "http://localhost:3000/reset-password")

	v.SetDefault("auth.requireverified", true)
	v.SetDefault("auth.otpttl", "5m")
	v.SetDefault("auth.otpsweepretention", "24h")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "Launchpad <no-reply@localhost>")
	v.SetDefault("mail.skipverify", false)

	v.SetDefault("stripe.secretkey", "")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("ratelimit.requests", 20)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("seed.name", "Super")
	v.SetDefault("seed.email", "")
	v.SetDefault("seed.password", "")
	v.SetDefault("seed.phone", "")

	v.SetDefault("allowcorsorigins", []string{})
}
