// Package dispatch is the command-routing core: it normalizes raw chat events,
// fans each valid message out to every registered bot manager, gates the
// invocation through per-guild permissions, and reduces the per-manager
// outcomes to a single response.
package dispatch

// Result is the four-valued outcome of one manager's attempt to handle one
// message. It is the only vocabulary allowed to cross the manager boundary;
// handler faults never do.
type Result int

const (
	Success Result = iota
	Fail
	NotRecognised
	Blocked
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Fail:
		return "fail"
	case NotRecognised:
		return "not recognised"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Aggregate reduces per-manager results to one outcome. Precedence: a real
// side-effecting Fail must not be masked by another manager's Success, a
// Success must not be hidden behind an unrelated "not mine", and Blocked is
// more informative than blanket non-recognition.
func Aggregate(results []Result) Result {
	agg := NotRecognised
	for _, r := range results {
		switch r {
		case Fail:
			return Fail
		case Success:
			agg = Success
		case Blocked:
			if agg == NotRecognised {
				agg = Blocked
			}
		}
	}
	return agg
}
