// Package catalog performs the schema and table bookkeeping around an
// import: ensuring schemas exist, checking and listing tables, and dropping
// staging tables.
//
// Every identifier is quoted with pgx.Identifier.Sanitize, so names with
// spaces, quotes, mixed case or reserved words are handled safely.
//
//	cat := catalog.New()
//	created, err := cat.EnsureSchema(ctx, conn, "mathesar_inference_schema")
//	leftovers, err := cat.ListTables(ctx, conn, "mathesar_inference_schema", "mathesar_temp_table_")
//
// Catalog is stateless and safe for concurrent use; thread safety depends on
// the injected pgjson.DBConnection.
package catalog
