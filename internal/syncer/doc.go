// Package syncer implements the Synchronizer: it makes the local working
// tree reflect one branch of the remote source repository.
//
// The decision procedure is a small state machine (see model.SyncState):
//
//	Unknown ──inspect──▶ ExistingTree ──bind origin, fetch, pull --rebase──▶ Synced
//	        └──────────▶ NoTree ───────clone────────────────────────────────▶ Synced
//
// Any failing step moves to Failed and aborts the run immediately. Nothing
// is retried and nothing is rolled back; a re-run resumes from whatever the
// previous run left behind, which is safe because every step is idempotent.
package syncer
