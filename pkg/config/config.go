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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Sales         SalesConfig
	Catalog       CatalogConfig
	Storage       StorageConfig
	Backup        BackupConfig
	Reports       ReportsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREDESK_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"STOREDESK_APP_TIMEZONE" default:"UTC"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the business timezone used for date-only comparisons.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvAppTimezone, a.Timezone, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREDESK_DB_DSN"`
	Driver string `envconfig:"STOREDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREDESK_DB_USER"`
	LegacyPassword string `envconfig:"STOREDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREDESK_REDIS_ADDR"`
	Password     string        `envconfig:"STOREDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"STOREDESK_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREDESK_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREDESK_CORS_ALLOWED_ORIGINS" default:"*"`
}

type SalesConfig struct {
	RestoreStockOnDelete bool          `envconfig:"STOREDESK_SALES_RESTORE_STOCK_ON_DELETE" default:"false"`
	IdempotencyTTL       time.Duration `envconfig:"STOREDESK_SALES_IDEMPOTENCY_TTL" default:"24h"`
}

type CatalogConfig struct {
	LowStockThreshold   int    `envconfig:"STOREDESK_CATALOG_LOW_STOCK_THRESHOLD" default:"5"`
	ProductDeletePolicy string `envconfig:"STOREDESK_CATALOG_PRODUCT_DELETE_POLICY" default:"cascade"`
}

func (c CatalogConfig) validate() error {
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvCatalogLowStockThreshold)
	}
	switch strings.ToLower(strings.TrimSpace(c.ProductDeletePolicy)) {
	case "cascade", "restrict":
		return nil
	default:
		return fmt.Errorf("%s must be cascade or restrict, got %q", EnvCatalogDeletePolicy, c.ProductDeletePolicy)
	}
}

type StorageConfig struct {
	BackupDir string `envconfig:"STOREDESK_STORAGE_BACKUP_DIR" default:"var/backups"`
	ReportDir string `envconfig:"STOREDESK_STORAGE_REPORT_DIR" default:"var/reports"`
	// MaxUploadMB bounds multipart restore uploads.
	MaxUploadMB int `envconfig:"STOREDESK_STORAGE_MAX_UPLOAD_MB" default:"50"`
}

type BackupConfig struct {
	Schedule          string `envconfig:"STOREDESK_BACKUP_SCHEDULE" default:"0 2 * * *"`
	RetentionSchedule string `envconfig:"STOREDESK_RETENTION_SCHEDULE" default:"30 3 * * *"`
	RetentionDays     int    `envconfig:"STOREDESK_BACKUP_RETENTION_DAYS" default:"30"`
}

type ReportsConfig struct {
	RetentionDays int `envconfig:"STOREDESK_REPORT_RETENTION_DAYS" default:"90"`
	HistoryLimit  int `envconfig:"STOREDESK_REPORT_HISTORY_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:storedesk.db?_foreign_keys=on"
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
