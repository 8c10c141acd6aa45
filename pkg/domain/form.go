package domain

// FormState is the lifecycle stage of a single submission attempt
type FormState string

// form states
const (
	FormFilling     FormState = "filling"
	FormValidating  FormState = "validating"
	FormDownloading FormState = "downloading"
	FormDownloaded  FormState = "downloaded"
	FormFailed      FormState = "failed"
)

// FailureKind qualifies FormFailed
type FailureKind string

// failure kinds
const (
	FailureNone        FailureKind = ""
	FailureNetwork     FailureKind = "network"
	FailureInvalidFeed FailureKind = "invalidFeed"
)

// FormStatus is the state of the subscription form, failure is set only for FormFailed
type FormStatus struct {
	State   FormState   `json:"state"`
	Failure FailureKind `json:"failure,omitempty"`
}

// formTransitions lists allowed moves between form states
var formTransitions = map[FormState][]FormState{
	FormFilling:     {FormValidating},
	FormValidating:  {FormDownloading, FormFilling},
	FormDownloading: {FormDownloaded, FormFailed},
	FormDownloaded:  {FormFilling},
	FormFailed:      {FormFilling},
}

// CanTransition reports whether the form may move from s to next
func (s FormStatus) CanTransition(next FormStatus) bool {
	if next.State == FormFailed && next.Failure == FailureNone {
		return false
	}
	if next.State != FormFailed && next.Failure != FailureNone {
		return false
	}
	for _, st := range formTransitions[s.State] {
		if st == next.State {
			return true
		}
	}
	return false
}

// String returns state with failure kind, i.e. "failed(network)"
func (s FormStatus) String() string {
	if s.State == FormFailed {
		return string(s.State) + "(" + string(s.Failure) + ")"
	}
	return string(s.State)
}
