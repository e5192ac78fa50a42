package config

// EnvPrefix is empty because every variable carries the full STOCKLINE_ name
// in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical environment variable names, shared with tests and docs.
const (
	EnvAppEnv   = "STOCKLINE_APP_ENV"
	EnvPort     = "STOCKLINE_APP_PORT"
	EnvDBDSN    = "STOCKLINE_DB_DSN"
	EnvDBHost   = "STOCKLINE_DB_HOST"
	EnvDBUser   = "STOCKLINE_DB_USER"
	EnvDBName   = "STOCKLINE_DB_NAME"
	EnvRedisURL = "STOCKLINE_REDIS_URL"

	EnvCatalogBaseURL     = "STOCKLINE_CATALOG_BASE_URL"
	EnvCatalogAccessToken = "STOCKLINE_CATALOG_ACCESS_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
