// Package store provides SQLite-backed durable storage for evaluation runs.
//
// A run groups the evaluations of one batch against one rule base:
//   - Runs: rule base name and content hash, engine and IR versions, row count
//   - Evaluations: one row per input record, keyed by (run_id, seq)
//
// Inputs and outputs are stored as canonical JSON so identical rows produce
// identical bytes. Reads order evaluations by seq, never by insertion time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Evaluation IDs are computed by ir.EvaluationID with domain-separated SHA-256.
package store
