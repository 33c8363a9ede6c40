package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	ChangeFeed    ChangeFeedConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Metrics       MetricsConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if err := cfg.ChangeFeed.validate(cfg.GCP); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VISTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"VISTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VISTORE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"VISTORE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"VISTORE_LOG_WARN_STACK" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"VISTORE_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"VISTORE_DB_DSN"`
	Driver string `envconfig:"VISTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VISTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"VISTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VISTORE_DB_USER"`
	LegacyPassword string `envconfig:"VISTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VISTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VISTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VISTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VISTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VISTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VISTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"VISTORE_REDIS_URL"`
	Address      string        `envconfig:"VISTORE_REDIS_ADDR"`
	Password     string        `envconfig:"VISTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VISTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VISTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VISTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VISTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VISTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VISTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"VISTORE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"VISTORE_JWT_ISSUER" default:"vistore"`
	ExpirationMinutes      int    `envconfig:"VISTORE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"VISTORE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VISTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VISTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VISTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VISTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VISTORE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"VISTORE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"VISTORE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"VISTORE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`

	RegisterWindow     time.Duration `envconfig:"VISTORE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"VISTORE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"VISTORE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VISTORE_AUTO_MIGRATE" default:"false"`
	// AdminSignup lets the first registered accounts request the admin role outside prod.
	AdminSignup bool `envconfig:"VISTORE_FEATURE_ADMIN_SIGNUP" default:"false"`
}

// CartConfig controls where cart and wishlist snapshots are persisted.
type CartConfig struct {
	Store        string        `envconfig:"VISTORE_CART_STORE" default:"redis"`
	KeyPrefix    string        `envconfig:"VISTORE_CART_KEY_PREFIX" default:"vi-store"`
	WriteTimeout time.Duration `envconfig:"VISTORE_CART_WRITE_TIMEOUT" default:"3s"`
	IdleTTL      time.Duration `envconfig:"VISTORE_CART_IDLE_TTL" default:"30m"`
	SweepEvery   time.Duration `envconfig:"VISTORE_CART_SWEEP_INTERVAL" default:"5m"`
	CookieName   string        `envconfig:"VISTORE_CART_COOKIE" default:"vi_session"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Store)) {
	case CartStoreRedis, CartStoreDB, CartStoreMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvCartStore, CartStoreRedis, CartStoreDB, CartStoreMemory)
}

// ChangeFeedConfig selects the transport that tells the catalog mirror a collection changed.
type ChangeFeedConfig struct {
	Driver       string        `envconfig:"VISTORE_CHANGEFEED_DRIVER" default:"redis"`
	Channel      string        `envconfig:"VISTORE_CHANGEFEED_CHANNEL" default:"vistore_changes"`
	MinReconnect time.Duration `envconfig:"VISTORE_CHANGEFEED_MIN_RECONNECT" default:"1s"`
	MaxReconnect time.Duration `envconfig:"VISTORE_CHANGEFEED_MAX_RECONNECT" default:"30s"`
}

func (c ChangeFeedConfig) validate(gcp GCPConfig) error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case ChangeFeedRedis, ChangeFeedPostgres, ChangeFeedMemory:
		return nil
	case ChangeFeedGCP:
		if strings.TrimSpace(gcp.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvChangeFeedDriver, ChangeFeedGCP)
		}
		return nil
	}
	return fmt.Errorf("unsupported change feed driver %q", c.Driver)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VISTORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VISTORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VISTORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CatalogTopic        string `envconfig:"VISTORE_PUBSUB_CATALOG_TOPIC" default:"vistore-catalog-changes"`
	CatalogSubscription string `envconfig:"VISTORE_PUBSUB_CATALOG_SUBSCRIPTION" default:"vistore-catalog-changes-api"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"VISTORE_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"VISTORE_METRICS_PATH" default:"/metrics"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VISTORE_CORS_ALLOWED_ORIGINS" default:"http://localhost:8080,http://localhost:5173"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:vistore.db?cache=shared"
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
