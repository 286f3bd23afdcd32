package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret     string
	UserTokenTTL  time.Duration
	AdminTokenTTL time.Duration
	AdminPassword string
	// AuthCookieName holds the signed session JWT. LegacyUserCookieName is
	// the old client-readable profile cookie; it is never an authority for
	// authorization decisions.
	AuthCookieName       string
	LegacyUserCookieName string
}

type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	SendSecret      string
	DispatchTimeout time.Duration
	MaxConcurrent   int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type RateLimitTier struct {
	MaxRequests int
	Window      time.Duration
}

type RateLimitConfig struct {
	Auth  RateLimitTier
	API   RateLimitTier
	Email RateLimitTier
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	PublicBaseURL string
	UseSSL        bool
	Region        string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	WebPush          WebPushConfig
	Mail             MailConfig
	RateLimit        RateLimitConfig
	Storage          StorageConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CODE404")
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

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwtsecret must be set")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.usertokenttl", "168h") // 7 days
	v.SetDefault("security.admintokenttl", "24h")
	v.SetDefault("security.authcookiename", "code404-auth-token")
	v.SetDefault("security.legacyusercookiename", "code404-user")

	v.SetDefault("webpush.subject", "mailto:admin@example.com")
	v.SetDefault("webpush.dispatchtimeout", "10s")
	v.SetDefault("webpush.maxconcurrent", 8)

	v.SetDefault("mail.port", 587)

	v.SetDefault("ratelimit.auth.maxrequests", 5)
	v.SetDefault("ratelimit.auth.window", "15m")
	v.SetDefault("ratelimit.api.maxrequests", 100)
	v.SetDefault("ratelimit.api.window", "15m")
	v.SetDefault("ratelimit.email.maxrequests", 3)
	v.SetDefault("ratelimit.email.window", "1h")

	v.SetDefault("storage.bucketavatars", "code404-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
}
