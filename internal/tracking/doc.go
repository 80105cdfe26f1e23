// Package tracking is the production-tracking boundary.
//
// Hooks talk to tracking through Client: registering published files,
// creating review versions, and uploading media. Store implements Client on
// a local SQLite database and also keeps the publish run history the CLI
// reports. Schema changes ship as goose migrations embedded in the binary.
package tracking
