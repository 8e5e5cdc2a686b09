// Package session provides conversation history persistence with PostgreSQL.
//
// A session is one employee conversation: an ordered message log exchanged
// between the employee and the assistant. The durable log is the source of
// truth for history; in-process caches (see internal/memory) are rebuilt
// from it at any time.
//
// Key operations:
//
//   - Session lifecycle: [Store.CreateSession], [Store.Session], [Store.Sessions], [Store.DeleteSession]
//   - Message persistence: [Store.AppendMessages], [Store.Messages]
//
// # Transaction Safety
//
// [Store.AppendMessages] uses SELECT ... FOR UPDATE to lock the session row,
// preventing race conditions on sequence numbers during concurrent writes.
// If any step fails, the entire transaction rolls back.
//
// # Local State
//
// [SaveCurrentSessionID] and [LoadCurrentSessionID] persist the active session
// for the CLI to ~/.hrmate/current_session using atomic writes (temp file +
// rename) with file locking via [github.com/gofrs/flock].
package session
