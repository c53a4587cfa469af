// Package importer implements the staged NDJSON import:
//
//	preflight → connect → ensure schema → stage (COPY into jsonb)
//	  → discover keys → create target + project (one transaction)
//	  → drop staging → record history
//
// Every step failure is returned as a *pgjson.StepError whose Kind is one of
// the pgjson sentinels. The steps run sequentially on a single session.
package importer
