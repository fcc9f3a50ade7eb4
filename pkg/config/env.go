package config

const EnvPrefix = "STOREDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "STOREDESK_APP_ENV"
	EnvPort         = "STOREDESK_APP_PORT"
	EnvLogLevel     = "STOREDESK_LOG_LEVEL"
	EnvLogWarnStack = "STOREDESK_LOG_WARN_STACK"
	EnvAppTimezone  = "STOREDESK_APP_TIMEZONE"
	EnvInstanceID   = "STOREDESK_INSTANCE_ID"

	EnvDBDSN      = "STOREDESK_DB_DSN"
	EnvDBDriver   = "STOREDESK_DB_DRIVER"
	EnvDBHost     = "STOREDESK_DB_HOST"
	EnvDBUser     = "STOREDESK_DB_USER"
	EnvDBName     = "STOREDESK_DB_NAME"
	EnvDBPassword = "STOREDESK_DB_PASSWORD"

	EnvRedisURL = "STOREDESK_REDIS_URL"

	EnvJWTSecret              = "STOREDESK_JWT_SECRET"
	EnvJWTIssuer              = "STOREDESK_JWT_ISSUER"
	EnvJWTExpMins             = "STOREDESK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREDESK_REFRESH_TOKEN_TTL_MINUTES"

	EnvSalesRestoreStockOnDelete = "STOREDESK_SALES_RESTORE_STOCK_ON_DELETE"
	EnvCatalogLowStockThreshold  = "STOREDESK_CATALOG_LOW_STOCK_THRESHOLD"
	EnvCatalogDeletePolicy       = "STOREDESK_CATALOG_PRODUCT_DELETE_POLICY"

	EnvStorageBackupDir = "STOREDESK_STORAGE_BACKUP_DIR"
	EnvStorageReportDir = "STOREDESK_STORAGE_REPORT_DIR"

	EnvBackupSchedule      = "STOREDESK_BACKUP_SCHEDULE"
	EnvBackupRetentionDays = "STOREDESK_BACKUP_RETENTION_DAYS"
	EnvReportRetentionDays = "STOREDESK_REPORT_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
