package pgjson

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportConfig contains all parameters needed for one import run.
type ImportConfig struct {
	// InputPath is the newline-delimited JSON file to import.
	InputPath string

	// ConnectionString is the PostgreSQL connection string (URI or ADO.NET format)
	// of the database the import runs against.
	ConnectionString string

	// Prefix is prepended to every created artifact. Defaults to DefaultPrefix.
	Prefix string

	// InferenceSchema holds the staging table and the import log.
	// Defaults to Prefix + InferenceSchemaSuffix.
	InferenceSchema string

	// TargetSchema holds the resulting table. Defaults to InferenceSchema.
	TargetSchema string

	// TargetTable, when set, is used verbatim as the resulting table name.
	// When empty a name is generated: Prefix + TargetTableInfix + unix seconds.
	TargetTable string

	// CleanupOnFailure drops the staging table when a later step fails.
	// By default it is retained for inspection.
	CleanupOnFailure bool

	// SkipValidation disables the local preflight pass over the input.
	SkipValidation bool

	// RecordHistory appends a row to the import log after a successful run.
	RecordHistory bool

	// Timeout is the global timeout for the entire import.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Cloud authentication parameters, used according to AuthMethod.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AWSRegion         string
	GoogleInstance    string
}

// WithDefaults returns a copy with empty naming fields filled in.
func (c ImportConfig) WithDefaults() ImportConfig {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.InferenceSchema == "" {
		c.InferenceSchema = c.Prefix + InferenceSchemaSuffix
	}
	if c.TargetSchema == "" {
		c.TargetSchema = c.InferenceSchema
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks if the ImportConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
// Call it on the result of WithDefaults.
func (c *ImportConfig) Validate() error {
	var errs []error

	if c.InputPath == "" {
		errs = append(errs, fmt.Errorf("InputPath is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	// Generated names must fit in an identifier without truncation.
	if n := len(c.Prefix) + len(StagingTableInfix) + reservedNameOverhead; n > MaxIdentifierLength {
		errs = append(errs, fmt.Errorf("prefix %q is too long: generated table names would be %d bytes (max %d): %w",
			c.Prefix, n, MaxIdentifierLength, ErrInvalidConfig))
	}

	for _, ident := range []struct{ field, value string }{
		{"InferenceSchema", c.InferenceSchema},
		{"TargetSchema", c.TargetSchema},
		{"TargetTable", c.TargetTable},
	} {
		if len(ident.value) > MaxIdentifierLength {
			errs = append(errs, fmt.Errorf("%s %q exceeds %d bytes: %w", ident.field, ident.value, MaxIdentifierLength, ErrInvalidConfig))
		}
		if strings.ContainsRune(ident.value, 0) {
			errs = append(errs, fmt.Errorf("%s contains a NUL byte: %w", ident.field, ErrInvalidConfig))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	return errors.Join(errs...)
}

// StagingPrefix is the name prefix shared by all staging tables of this config.
func (c *ImportConfig) StagingPrefix() string {
	return c.Prefix + StagingTableInfix
}

// ImportLogTable is the name of the history table.
func (c *ImportConfig) ImportLogTable() string {
	return c.Prefix + ImportLogSuffix
}

// ImportResult describes a completed import.
type ImportResult struct {
	RunID        uuid.UUID
	InputPath    string
	Fingerprint  string
	StagingTable TableName
	TargetTable  TableName
	Columns      []string
	RowsStaged   int64
	RowsLoaded   int64
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall-clock time of the run.
func (r *ImportResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TableName is a schema-qualified table name.
type TableName struct {
	Schema string
	Name   string
}

// String renders schema.name unquoted, for messages.
func (t TableName) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Step identifies a stage of the import pipeline.
type Step int

const (
	StepPreflight Step = iota
	StepConnect
	StepEnsureSchema
	StepStage
	StepDiscoverKeys
	StepCreateTarget
	StepProject
	StepCleanup
	StepRecordHistory
)

// Steps lists the pipeline in execution order.
var Steps = []Step{
	StepPreflight,
	StepConnect,
	StepEnsureSchema,
	StepStage,
	StepDiscoverKeys,
	StepCreateTarget,
	StepProject,
	StepCleanup,
	StepRecordHistory,
}

func (s Step) String() string {
	switch s {
	case StepPreflight:
		return "preflight"
	case StepConnect:
		return "connect"
	case StepEnsureSchema:
		return "ensure schema"
	case StepStage:
		return "stage"
	case StepDiscoverKeys:
		return "discover keys"
	case StepCreateTarget:
		return "create target"
	case StepProject:
		return "project"
	case StepCleanup:
		return "cleanup"
	case StepRecordHistory:
		return "record history"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate authentication (mTLS)
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps the names accepted in pgjson.yaml to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "certificate", "cert", "mtls":
		return AuthMethodCertificate, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "azure_entra_id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("unknown auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
