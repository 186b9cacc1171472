package eventrt

import (
	"time"
)

// Record is the immutable envelope a Store assigns to an appended event:
// the invariant shape of spec §3. It is what gets broadcast on the bus
// and what projections fold.
type Record struct {
	Ref           Ref
	StreamVersion Version
	GlobalVersion GlobalVersion
	Event         Event
	Metadata      Metadata
	At            time.Time
}
