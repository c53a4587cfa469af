package pgjson

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess             = 0  // Import completed successfully
	ExitGeneralError        = 1  // Unknown or unclassified error
	ExitUsageError          = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic               = 3  // Internal panic (unexpected crash)
	ExitConfigError         = 10 // Invalid configuration
	ExitConnectionError     = 11 // Failed to connect to database
	ExitApprovalDenied      = 12 // User denied cleanup approval
	ExitExecutionFailed     = 13 // SQL execution failed
	ExitFileNotFound        = 14 // Input file missing or unreadable
	ExitMalformedRecord     = 15 // Input line is not a JSON object
	ExitIdentifierConflict  = 16 // Table or column name cannot be used
	ExitConstraintViolation = 17 // Database rejected the data
)

const (
	// DefaultPrefix is prepended to every artifact the importer creates.
	DefaultPrefix = "mathesar_"

	// InferenceSchemaSuffix is appended to the prefix to name the schema
	// holding staging tables and, by default, target tables.
	InferenceSchemaSuffix = "inference_schema"

	// StagingTableInfix names staging tables: <prefix>temp_table_<unix seconds>.
	StagingTableInfix = "temp_table_"

	// TargetTableInfix names generated target tables: <prefix>table_<unix seconds>.
	TargetTableInfix = "table_"

	// ImportLogSuffix names the history table: <prefix>import_log.
	ImportLogSuffix = "import_log"

	// StagingColumn is the single jsonb column of a staging table.
	StagingColumn = "data"

	// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1. Longer identifiers
	// are silently truncated by the server.
	MaxIdentifierLength = 63

	// DefaultReserveAttempts bounds how many candidate names are tried when
	// reserving a staging or target table.
	DefaultReserveAttempts = 5

	// DefaultTimeout is the catastrophic-failure timeout for a whole import.
	DefaultTimeout = 30 * time.Minute

	// DefaultForceApprovalCountdown is the countdown duration before forced cleanup proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultDatabase is used when neither flags, environment nor config name one.
	DefaultDatabase = "postgres"

	// AppName is reported to the server as application_name.
	AppName = "pgjson"
)

// reservedNameOverhead is the longest suffix a generated table name can carry:
// 10 digits of unix seconds plus "_" and 8 hex characters of a reservation suffix.
const reservedNameOverhead = 10 + 1 + 8
