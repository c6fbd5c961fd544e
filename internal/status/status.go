package status

// Status represents a state in the invoice review lifecycle.
type Status string

const (
	StatusNew       Status = "new"
	StatusReady     Status = "ready"
	StatusCancelled Status = "cancelled"
	StatusSent      Status = "sent"
)

var validStatuses = map[Status]bool{
	StatusNew:       true,
	StatusReady:     true,
	StatusCancelled: true,
	StatusSent:      true,
}

// transitions lists the permitted edges. Transitions are user-driven
// and one-directional; nothing leaves cancelled or sent.
var transitions = map[Status][]Status{
	StatusNew:   {StatusReady},
	StatusReady: {StatusCancelled, StatusSent},
}

// IsValid returns true if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusSent
}

// CanTransition returns true if moving from s to the target is allowed.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
