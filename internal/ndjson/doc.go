// Package ndjson reads newline-delimited JSON.
//
// A Reader yields one record per non-blank line. Lines may be terminated by
// "\n" or "\r\n", the last line may lack a terminator, and a UTF-8 byte order
// mark at the start of the input is dropped. There is no line length limit.
//
// Validate and ProbeKeys are local passes over a whole input: Validate checks
// that every record is a JSON object, ProbeKeys additionally counts top-level
// keys. Neither touches a database.
package ndjson
