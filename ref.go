package eventrt

// Ref names one aggregate's stream: the pair (type_tag, id) of spec §3.
// Type is the stable identifier for the user module (e.g. "Counter");
// ID is any value the caller can render to a string key.
type Ref struct {
	Type string
	ID   string
}

// StreamID renders the canonical store key for this reference, e.g.
// "Counter:42". Adapters key their internal tables on this string.
func (r Ref) StreamID() string {
	return r.Type + ":" + r.ID
}
