// Package logging provides the pgjson.Logger implementations and a
// pgjson.ProgressReporter that writes step progress through a Logger.
package logging
