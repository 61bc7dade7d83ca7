// Package history keeps a SQLite ledger of pipeline runs.
//
// Each processed item gets one row keyed by its run ID. The row is written
// when the item starts and finalized with its outcome, so a crash leaves a
// "running" row that the next Open marks as interrupted.
package history
