package pgjson

import "context"

// Importer runs the staged JSON import described by an ImportConfig.
type Importer interface {
	// Import runs the whole pipeline. On failure the returned error wraps a
	// *StepError naming the failed step and its kind sentinel.
	Import(ctx context.Context, config ImportConfig) (*ImportResult, error)
}

// Approver handles user interaction for destructive operations, such as
// dropping leftover staging tables.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the schema name for confirmation
type Approver interface {
	// RequestApproval asks for confirmation before dropping the given tables.
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, schema string, tables []TableName) (bool, error)
}
