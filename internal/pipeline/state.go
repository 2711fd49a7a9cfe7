package pipeline

import "fmt"

// State is a step of one run.
type State int

const (
	StateStart State = iota
	StateLoadingImage
	StateRunningSource
	StateExtracting
	StateAssembling
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:         "START",
	StateLoadingImage:  "LOADING_IMAGE",
	StateRunningSource: "RUNNING_SOURCE",
	StateExtracting:    "EXTRACTING",
	StateAssembling:    "ASSEMBLING",
	StateDone:          "DONE",
	StateFailed:        "FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// allowed lists the forward transitions; any non-terminal state may also
// move to StateFailed.
var allowed = map[State][]State{
	StateStart:         {StateLoadingImage},
	StateLoadingImage:  {StateRunningSource, StateAssembling},
	StateRunningSource: {StateExtracting},
	StateExtracting:    {StateAssembling},
	StateAssembling:    {StateDone},
}

// CanTransition reports whether a run may move from one state to another.
// A cache hit goes straight from StateLoadingImage to StateAssembling.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
