package exchange

// Status is the lifecycle state of a proposal. PENDING is the only mutable
// state; every transition originates from it.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusCanceled Status = "CANCELED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusAccepted: true, StatusRejected: true, StatusCanceled: true},
	StatusAccepted: {},
	StatusRejected: {},
	StatusCanceled: {},
}

// CanTransition reports whether a proposal may move from one status to
// another. Terminal statuses have no outgoing transitions.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether s admits no further transitions.
func Terminal(s Status) bool {
	return len(validNext[s]) == 0
}
