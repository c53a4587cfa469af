package db

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/pgjson/internal/config"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// GranularConnFlags holds the libpq-style connection flags (-h, -p, -U, -d).
//
// There is no password flag. Use $PGPASSWORD, ~/.pgpass or a connection
// string instead.
type GranularConnFlags struct {
	Host        string
	Port        int
	Username    string
	Database    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// IsEmpty reports whether no server-addressing flag was given. Database and
// the certificate paths are excluded: they may refine a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// CloudFlags selects a cloud IAM authentication method. At most one of
// Azure, AWS and Google may be set.
type CloudFlags struct {
	Azure         bool
	AzureTenantID string
	AzureClientID string

	AWS       bool
	AWSRegion string

	Google         bool
	GoogleInstance string
}

// EnvVars captures the environment variables that influence a connection.
// See https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGJSON_CONNECTION_STRING string
	DATABASE_URL             string

	PGHOST        string
	PGPORT        string
	PGUSER        string
	PGPASSWORD    string
	PGDATABASE    string
	PGSSLMODE     string
	PGSSLCERT     string
	PGSSLKEY      string
	PGSSLROOTCERT string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION string
}

func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGJSON_CONNECTION_STRING: os.Getenv("PGJSON_CONNECTION_STRING"),
		DATABASE_URL:             os.Getenv("DATABASE_URL"),
		PGHOST:                   os.Getenv("PGHOST"),
		PGPORT:                   os.Getenv("PGPORT"),
		PGUSER:                   os.Getenv("PGUSER"),
		PGPASSWORD:               os.Getenv("PGPASSWORD"),
		PGDATABASE:               os.Getenv("PGDATABASE"),
		PGSSLMODE:                os.Getenv("PGSSLMODE"),
		PGSSLCERT:                os.Getenv("PGSSLCERT"),
		PGSSLKEY:                 os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:            os.Getenv("PGSSLROOTCERT"),
		AZURE_TENANT_ID:          os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:          os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:      os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:               os.Getenv("AWS_REGION"),
	}
}

// ErrConflictingConnectionFlags is returned when --connection is combined
// with granular flags.
var ErrConflictingConnectionFlags = errors.New(
	"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n" +
		"Choose one approach:\n" +
		"  1. Connection string: --connection \"postgresql://user@localhost:5432/postgres\"\n" +
		"  2. Granular flags: -h localhost -p 5432 -U myuser -d mydb\n" +
		"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser")

// ResolveConnectionParams builds the ConnectionConfig for a run.
//
// The server is taken from, in order: --connection, $PGJSON_CONNECTION_STRING,
// $DATABASE_URL (the latter two only when no granular flag is set), otherwise
// from granular flags > libpq env vars > pgjson.yaml > defaults.
// -d and the certificate flags refine a connection string.
//
// The auth method is chosen by cloud flags, then pgjson.yaml auth_method,
// then the presence of AZURE_* variables, then client certificates.
func ResolveConnectionParams(
	connStringFlag string,
	flags *GranularConnFlags,
	cloud *CloudFlags,
	env *EnvVars,
	project *config.ProjectConfig,
) (*pgjson.ConnectionConfig, error) {
	if flags == nil {
		flags = &GranularConnFlags{}
	}
	if cloud == nil {
		cloud = &CloudFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if project != nil {
		pc = project.Connection
	}

	if connStringFlag != "" && !flags.IsEmpty() {
		return nil, fmt.Errorf("%w: %w", pgjson.ErrInvalidConfig, ErrConflictingConnectionFlags)
	}

	connStr := connStringFlag
	if connStr == "" && flags.IsEmpty() {
		connStr = firstNonEmpty(env.PGJSON_CONNECTION_STRING, env.DATABASE_URL)
	}

	var (
		cfg *pgjson.ConnectionConfig
		err error
	)
	if connStr != "" {
		cfg, err = ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w: %w", err, pgjson.ErrInvalidConfig)
		}
		if flags.Database != "" {
			cfg.Database = flags.Database
		}
		cfg.SSLMode = firstNonEmpty(cfg.SSLMode, env.PGSSLMODE, "prefer")
		cfg.SSLCert = firstNonEmpty(flags.SSLCert, cfg.SSLCert, env.PGSSLCERT)
		cfg.SSLKey = firstNonEmpty(flags.SSLKey, cfg.SSLKey, env.PGSSLKEY)
		cfg.SSLRootCert = firstNonEmpty(flags.SSLRootCert, cfg.SSLRootCert, env.PGSSLROOTCERT)
	} else {
		cfg, err = resolveFromGranularParams(flags, env, pc)
		if err != nil {
			return nil, err
		}
	}

	if err := applyAuthMethod(cfg, cloud, env, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*pgjson.ConnectionConfig, error) {
	cfg := &pgjson.ConnectionConfig{
		AuthMethod:       pgjson.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, pgjson.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = defaultPort
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = env.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database, pgjson.DefaultDatabase)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, "prefer")
	cfg.SSLCert = firstNonEmpty(flags.SSLCert, env.PGSSLCERT, pc.SSLCert)
	cfg.SSLKey = firstNonEmpty(flags.SSLKey, env.PGSSLKEY, pc.SSLKey)
	cfg.SSLRootCert = firstNonEmpty(flags.SSLRootCert, env.PGSSLROOTCERT, pc.SSLRootCert)

	return cfg, nil
}

func applyAuthMethod(cfg *pgjson.ConnectionConfig, cloud *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	selected := 0
	for _, on := range []bool{cloud.Azure || cloud.AzureTenantID != "" || cloud.AzureClientID != "", cloud.AWS, cloud.Google} {
		if on {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("only one of --azure, --aws and --google may be used: %w", pgjson.ErrInvalidConfig)
	}

	method := pgjson.AuthMethodStandard
	switch {
	case cloud.AWS:
		method = pgjson.AuthMethodAWSIAM
	case cloud.Google:
		method = pgjson.AuthMethodGoogleIAM
	case selected == 1:
		method = pgjson.AuthMethodAzureEntraID
	case pc.AuthMethod != "":
		m, err := pgjson.ParseAuthMethod(pc.AuthMethod)
		if err != nil {
			return err
		}
		method = m
	case env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != "":
		method = pgjson.AuthMethodAzureEntraID
	}
	if method == pgjson.AuthMethodStandard && cfg.SSLCert != "" && cfg.SSLKey != "" {
		method = pgjson.AuthMethodCertificate
	}
	cfg.AuthMethod = method

	switch method {
	case pgjson.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(cloud.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(cloud.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case pgjson.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(cloud.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case pgjson.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(cloud.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
