package state

type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusSending   JobStatus = "sending"
	StatusSent      JobStatus = "sent"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

func (s JobStatus) String() string {
	return string(s)
}

var AllStatuses = []JobStatus{
	StatusScheduled,
	StatusSending,
	StatusSent,
	StatusFailed,
	StatusCanceled,
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

var ValidTransitions = []Transition{
	{From: StatusScheduled, To: StatusSending},
	{From: StatusScheduled, To: StatusCanceled},
	{From: StatusSending, To: StatusSent},
	{From: StatusSending, To: StatusScheduled},
	{From: StatusSending, To: StatusFailed},
}

func IsValidTransition(from, to JobStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func IsTerminal(s JobStatus) bool {
	return s == StatusSent || s == StatusFailed || s == StatusCanceled
}
