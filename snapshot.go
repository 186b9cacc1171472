package eventrt

import (
	"time"
)

// Snapshot represents the current persisted state of an aggregate
// at a specific version, optionally loaded from storage.
type Snapshot struct {
	State   any       // The deserialized state
	Version Version   // Aggregate version at which the snapshot was taken
	Found   bool      // Whether a snapshot exists
	At      time.Time // Timestamp of when it was taken

	// Raw, if non-nil, is the snapshot's JSON encoding as persisted by a
	// store adapter that cannot hand back a caller's concrete state type
	// directly (e.g. one backed by a generic column). A Runtime's
	// hydrate path falls back to decoding Raw into S when State isn't
	// already assertable to S. Adapters that store S's Go value directly
	// (stores/mem) leave this nil.
	Raw []byte
}
