package model

// Flight is the static descriptor of the single scheduled flight this
// server manages.  It is loaded once from configuration, shared by
// reference and never mutated; every snapshot carries it alongside the
// seat list so clients can render the header without a second request.
type Flight struct {
	Number      string `json:"number"`
	Kind        string `json:"kind"` // e.g. "one-way"
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Gate        string `json:"gate"`
}
