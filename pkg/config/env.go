package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "DTECH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "DTECH_DB_DSN"
	EnvDBHost = "DTECH_DB_HOST"
	EnvDBUser = "DTECH_DB_USER"
	EnvDBName = "DTECH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
