package eventrt

// Version is a stream-local, totally ordered position: 1 for the first
// event appended to a stream, strictly increasing by one per subsequent
// event in that stream.
type Version int64

// VersionAll is the distinguished minimum version: "before any event".
// It is a valid *current-version* value (a fresh hydration starts here),
// never a stored version and never an expected-version argument — use
// ExpectedNoStream for that.
const VersionAll Version = 0

// Expected-version arguments to Store.Append. These are never returned
// by the store as a stream's current version; they are only meaningful
// as the caller's assumption about the stream's head.
const (
	// ExpectedAny disables the optimistic-concurrency check entirely.
	ExpectedAny Version = -1
	// ExpectedNoStream asserts the stream is currently empty. A Runtime
	// passes it only for an append to a stream that has no events yet.
	ExpectedNoStream Version = -2
)

// GlobalVersion is a store-wide, totally ordered position, independent of
// any single stream's Version. It is non-decreasing in append/publish
// order and is what projections track to dedupe and detect gaps.
type GlobalVersion int64

// GlobalAll is the distinguished minimum global version: "before any
// record the store has ever produced". A fresh projection starts here to
// receive the entire history on its first catch-up fetch.
const GlobalAll GlobalVersion = 0

// Comparison is the result of Store.CompareVersion(a, b): how b relates
// to a. It is the projection pipeline's gap detector (spec §4.1).
type Comparison int

const (
	// Past means b is strictly before a; the record has already been
	// applied (or is otherwise stale) and should be dropped.
	Past Comparison = iota
	// Equal means b == a.
	Equal
	// NextOne means b is the immediate successor of a: no records were
	// missed, apply it and advance.
	NextOne
	// Future means b is strictly beyond a's immediate successor: one or
	// more records were missed and must be fetched from the store.
	Future
)

func (c Comparison) String() string {
	switch c {
	case Past:
		return "past"
	case Equal:
		return "equal"
	case NextOne:
		return "next_one"
	case Future:
		return "future"
	default:
		return "unknown"
	}
}

// CompareGlobalVersion is the canonical integer comparator shared by
// every Store adapter in this module: global versions are always plain
// monotonic counters, so every adapter's CompareVersion delegates here
// instead of re-deriving the same arithmetic.
func CompareGlobalVersion(a, b GlobalVersion) Comparison {
	switch {
	case b <= a:
		if b == a {
			return Equal
		}
		return Past
	case b == a+1:
		return NextOne
	default:
		return Future
	}
}
