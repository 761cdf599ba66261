package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so the
// prefix only matters for fields without one.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	ServiceKindAPI        = "api"
	ServiceKindStorefront = "storefront"
	ServiceKindMigrate    = "migrate"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"
	EnvGCSBucket    = "STOREFRONT_GCS_BUCKET_NAME"

	EnvModerationMinLikelihood = "STOREFRONT_MODERATION_MIN_LIKELIHOOD"

	EnvMedusaBackendURL     = "STOREFRONT_MEDUSA_BACKEND_URL"
	EnvMedusaPublishableKey = "STOREFRONT_MEDUSA_PUBLISHABLE_KEY"
	EnvDefaultRegion        = "STOREFRONT_DEFAULT_REGION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
