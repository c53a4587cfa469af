package importer

// SQL used by the import steps. Identifiers are spliced in with
// pgx.Identifier.Sanitize; values always travel as parameters.
const (
	// %s: qualified staging table, staging column
	sqlCreateStaging = "CREATE TABLE %s (%s jsonb)"

	// %s: staging column, qualified staging table
	sqlDiscoverKeys = `SELECT COALESCE(array_agg(k.key ORDER BY k.key), '{}')
		FROM (SELECT DISTINCT jsonb_object_keys(%s) AS key FROM %s) k`

	// %s: qualified target table, column definitions
	sqlCreateTarget = "CREATE TABLE %s (%s)"

	// %s: qualified target table, column list, projections, qualified staging table
	sqlProject = "INSERT INTO %s (%s) SELECT %s FROM %s"

	// %s: qualified target table, qualified staging table
	sqlProjectNoColumns = "INSERT INTO %s SELECT FROM %s"

	// %s: qualified history table
	sqlCreateImportLog = `CREATE TABLE IF NOT EXISTS %s (
		run_id        uuid PRIMARY KEY,
		input_path    text NOT NULL,
		fingerprint   text NOT NULL,
		staging_table text NOT NULL,
		target_table  text NOT NULL,
		column_count  integer NOT NULL,
		rows_staged   bigint NOT NULL,
		rows_loaded   bigint NOT NULL,
		started_at    timestamptz NOT NULL,
		finished_at   timestamptz NOT NULL
	)`

	// %s: qualified history table
	sqlInsertImportLog = `INSERT INTO %s
		(run_id, input_path, fingerprint, staging_table, target_table,
		 column_count, rows_staged, rows_loaded, started_at, finished_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)
