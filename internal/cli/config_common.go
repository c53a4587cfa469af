package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgjson/internal/config"
	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
	sslCert        string
	sslKey         string
	sslRootCert    string
}

// resolvedConnection holds the resolved connection configuration.
type resolvedConnection struct {
	ConnConfig *pgjson.ConnectionConfig
	ConnStr    string
}

// registerConnectionFlags binds the connection flags shared by import and cleanup.
func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()

	flags.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format)\n"+
			"Falls back to $PGJSON_CONNECTION_STRING, then $DATABASE_URL\n"+
			"Cannot be combined with -h, -p, -U or --sslmode")
	flags.StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host (default: $PGHOST or localhost)")
	flags.IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port (default: $PGPORT or 5432)")
	flags.StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user name (default: $PGUSER or current OS user)")
	flags.StringVarP(&f.database, "database", "d", "",
		"Database to import into (default: $PGDATABASE or postgres)\n"+
			"Overrides the database of a connection string")
	flags.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable, allow, prefer, require, verify-ca, verify-full\n"+
			"(default: $PGSSLMODE or prefer)")
	flags.StringVar(&f.sslCert, "sslcert", "",
		"Client certificate file for mTLS (default: $PGSSLCERT)")
	flags.StringVar(&f.sslKey, "sslkey", "",
		"Client private key file for mTLS (default: $PGSSLKEY)")
	flags.StringVar(&f.sslRootCert, "sslrootcert", "",
		"CA certificate used to verify the server (default: $PGSSLROOTCERT)")

	flags.BoolVar(&f.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	flags.StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	flags.BoolVar(&f.aws, "aws", false,
		"Enable AWS RDS IAM authentication\n"+
			"Uses the default AWS credential chain")
	flags.StringVar(&f.awsRegion, "aws-region", "",
		"AWS region of the RDS instance (overrides $AWS_REGION)")
	flags.BoolVar(&f.google, "google", false,
		"Enable Google Cloud SQL IAM authentication\n"+
			"Uses Application Default Credentials")
	flags.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
}

// resolveConnectionFromFlags resolves connection configuration from flags and project config.
func resolveConnectionFromFlags(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
	verbose bool,
) (*resolvedConnection, error) {
	granularFlags := &db.GranularConnFlags{
		Host:        flags.host,
		Port:        flags.port,
		Username:    flags.username,
		Database:    flags.database,
		SSLMode:     flags.sslMode,
		SSLCert:     flags.sslCert,
		SSLKey:      flags.sslKey,
		SSLRootCert: flags.sslRootCert,
	}

	cloudFlags := &db.CloudFlags{
		Azure:          flags.azure,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		AWS:            flags.aws,
		AWSRegion:      flags.awsRegion,
		Google:         flags.google,
		GoogleInstance: flags.googleInstance,
	}

	connConfig, err := resolveConnection(flags.connection, granularFlags, cloudFlags, projectCfg)
	if err != nil {
		return nil, err
	}
	if verbose {
		logConnectionVerbose(connConfig)
	}

	return &resolvedConnection{
		ConnConfig: connConfig,
		ConnStr:    db.BuildConnectionString(connConfig),
	}, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring pgjson.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return flagTimeout, nil
	}
	parsed, err := projectCfg.TimeoutDuration()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pgjson.ErrInvalidConfig, err)
	}
	if parsed == 0 {
		return flagTimeout, nil
	}
	return parsed, nil
}

// loadProjectConfig loads .env and the project configuration.
// A missing file is not an error unless its path was given explicitly.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path := getConfigPath(cmd)
	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !cmd.Flags().Changed("config") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, err, pgjson.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *pgjson.ConnectionConfig) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	if connConfig.SSLCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Cert: %s\n", connConfig.SSLCert)
	}
	if connConfig.SSLKey != "" {
		fmt.Fprintf(os.Stderr, "  SSL Key: %s\n", connConfig.SSLKey)
	}
	if connConfig.SSLRootCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Root Cert: %s\n", connConfig.SSLRootCert)
	}
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", connConfig.AuthMethod)
}
