// Package aggregates defines the shared aggregate contract description and the
// error codes every write path reports.
package aggregates
