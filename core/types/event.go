package types

// Event represents a typed state change emitted during a judge transition.
// Attributes hold the canonical string encoding of the event payload.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
