package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Upload       UploadConfig
	Reviews      ReviewsConfig
	Moderation   ModerationConfig
	PubSub       PubSubConfig
	Commerce     CommerceConfig
	Storefront   StorefrontConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the given service kind cannot start without.
func (c *Config) Validate(kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ServiceKindAPI:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
		if err := c.Moderation.validate(); err != nil {
			return err
		}
		return c.JWT.validate()
	case ServiceKindMigrate:
		return c.DB.ensureDSN()
	case ServiceKindStorefront:
		return c.Commerce.validate()
	default:
		return fmt.Errorf("unknown service kind %q", kind)
	}
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	// Proxies in front of the service that append to X-Forwarded-For.
	TrustedProxyHops int `envconfig:"STOREFRONT_TRUSTED_PROXY_HOPS" default:"1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER"`
	Audience          string `envconfig:"STOREFRONT_JWT_AUDIENCE" default:"storefront-admin"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) validate() error {
	missing := []string{}
	if strings.TrimSpace(j.Secret) == "" {
		missing = append(missing, EnvJWTSecret)
	}
	if strings.TrimSpace(j.Issuer) == "" {
		missing = append(missing, EnvJWTIssuer)
	}
	if len(missing) > 0 {
		return fmt.Errorf("required key(s) %s missing value", strings.Join(missing, ", "))
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

// HasCredentials reports whether explicit service account credentials are configured.
func (g GCPConfig) HasCredentials() bool {
	return strings.TrimSpace(g.CredentialsJSON) != "" || strings.TrimSpace(g.ApplicationCredentials) != ""
}

type GCSConfig struct {
	BucketName    string `envconfig:"STOREFRONT_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"STOREFRONT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	ObjectPrefix  string `envconfig:"STOREFRONT_GCS_OBJECT_PREFIX" default:"uploads"`
}

type UploadConfig struct {
	MaxUploadMB      int           `envconfig:"STOREFRONT_MAX_UPLOAD_MB" default:"10"`
	AllowedMimeTypes []string      `envconfig:"STOREFRONT_UPLOAD_MIME_TYPES" default:"image/png,image/jpeg,image/webp,image/gif,video/mp4,video/webm"`
	RateLimitWindow  time.Duration `envconfig:"STOREFRONT_UPLOAD_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP   int           `envconfig:"STOREFRONT_UPLOAD_RATE_LIMIT_PER_IP" default:"30"`
}

// MaxBytes returns the per-file upload ceiling.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) * 1024 * 1024
}

// ReviewsConfig throttles anonymous review submissions.
type ReviewsConfig struct {
	RateLimitWindow      time.Duration `envconfig:"STOREFRONT_REVIEW_RATE_LIMIT_WINDOW" default:"1h"`
	RateLimitPerIP       int           `envconfig:"STOREFRONT_REVIEW_RATE_LIMIT_PER_IP" default:"20"`
	RateLimitPerCustomer int           `envconfig:"STOREFRONT_REVIEW_RATE_LIMIT_PER_CUSTOMER" default:"5"`
}

type ModerationConfig struct {
	Enabled bool `envconfig:"STOREFRONT_MODERATION_ENABLED" default:"true"`
	// Lowest SafeSearch likelihood that rejects an image.
	MinLikelihood string `envconfig:"STOREFRONT_MODERATION_MIN_LIKELIHOOD" default:"LIKELY"`
}

var moderationThresholds = []string{"VERY_UNLIKELY", "UNLIKELY", "POSSIBLE", "LIKELY", "VERY_LIKELY"}

func (m ModerationConfig) validate() error {
	if !slices.Contains(moderationThresholds, m.MinLikelihood) {
		return fmt.Errorf("invalid %s %q: want one of %s", EnvModerationMinLikelihood, m.MinLikelihood, strings.Join(moderationThresholds, ", "))
	}
	return nil
}

type PubSubConfig struct {
	EventsTopic    string        `envconfig:"STOREFRONT_PUBSUB_EVENTS_TOPIC"`
	VerifyTopic    bool          `envconfig:"STOREFRONT_PUBSUB_VERIFY_TOPIC" default:"true"`
	BatchDelay     time.Duration `envconfig:"STOREFRONT_PUBSUB_BATCH_DELAY" default:"10ms"`
	BatchCount     int           `envconfig:"STOREFRONT_PUBSUB_BATCH_COUNT" default:"100"`
	PublishTimeout time.Duration `envconfig:"STOREFRONT_PUBSUB_PUBLISH_TIMEOUT" default:"30s"`
}

type CommerceConfig struct {
	BackendURL     string        `envconfig:"STOREFRONT_MEDUSA_BACKEND_URL"`
	PublishableKey string        `envconfig:"STOREFRONT_MEDUSA_PUBLISHABLE_KEY"`
	ExtensionURL   string        `envconfig:"STOREFRONT_EXTENSION_API_URL"`
	DefaultRegion  string        `envconfig:"STOREFRONT_DEFAULT_REGION" default:"us"`
	GeoHeader      string        `envconfig:"STOREFRONT_GEO_COUNTRY_HEADER" default:"X-Vercel-IP-Country"`
	RegionTTL      time.Duration `envconfig:"STOREFRONT_REGION_CACHE_TTL" default:"1h"`
	CacheIDTTL     time.Duration `envconfig:"STOREFRONT_CACHE_ID_TTL" default:"24h"`
	LocaleTTL      time.Duration `envconfig:"STOREFRONT_LOCALE_COOKIE_TTL" default:"8760h"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_MEDUSA_TIMEOUT" default:"10s"`
}

// ExtensionBaseURL is where the media and form extension routes live; it
// defaults to the commerce backend itself.
func (c CommerceConfig) ExtensionBaseURL() string {
	if trimmed := strings.TrimSpace(c.ExtensionURL); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(c.BackendURL)
}

func (c CommerceConfig) validate() error {
	missing := []string{}
	if strings.TrimSpace(c.BackendURL) == "" {
		missing = append(missing, EnvMedusaBackendURL)
	}
	if strings.TrimSpace(c.PublishableKey) == "" {
		missing = append(missing, EnvMedusaPublishableKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("required key(s) %s missing value", strings.Join(missing, ", "))
	}
	if _, err := url.ParseRequestURI(c.BackendURL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvMedusaBackendURL, err)
	}
	return nil
}

type StorefrontConfig struct {
	UpstreamURL    string   `envconfig:"STOREFRONT_UPSTREAM_URL"`
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:8000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
