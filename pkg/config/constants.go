package config

const EnvPrefix = "VISTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	CartStoreRedis  = "redis"
	CartStoreDB     = "db"
	CartStoreMemory = "memory"
)

const (
	ChangeFeedRedis    = "redis"
	ChangeFeedPostgres = "postgres"
	ChangeFeedGCP      = "gcp"
	ChangeFeedMemory   = "memory"
)

const (
	EnvAppEnv   = "VISTORE_APP_ENV"
	EnvPort     = "VISTORE_APP_PORT"
	EnvDBDSN    = "VISTORE_DB_DSN"
	EnvDBHost   = "VISTORE_DB_HOST"
	EnvDBUser   = "VISTORE_DB_USER"
	EnvDBName   = "VISTORE_DB_NAME"
	EnvDBDriver = "VISTORE_DB_DRIVER"
	EnvRedisURL = "VISTORE_REDIS_URL"

	EnvJWTSecret              = "VISTORE_JWT_SECRET"
	EnvJWTIssuer              = "VISTORE_JWT_ISSUER"
	EnvJWTExpMins             = "VISTORE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "VISTORE_REFRESH_TOKEN_TTL_MINUTES"

	EnvCartStore        = "VISTORE_CART_STORE"
	EnvChangeFeedDriver = "VISTORE_CHANGEFEED_DRIVER"
	EnvGCPProjectID     = "VISTORE_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
