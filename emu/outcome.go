package emu

// Outcome is the result of offering an instruction word to an engine.
type Outcome uint8

// Execution outcomes.
const (
	// NotRecognized means the engine does not claim the word. State is
	// untouched and dispatch moves on to the next candidate.
	NotRecognized Outcome = iota
	// Handled means the word was executed and the step is complete.
	Handled
	// EnvironmentCall is raised by ecall.
	EnvironmentCall
	// EnvironmentBreak is raised by ebreak.
	EnvironmentBreak
)

func (o Outcome) String() string {
	switch o {
	case NotRecognized:
		return "not-recognized"
	case Handled:
		return "handled"
	case EnvironmentCall:
		return "environment-call"
	case EnvironmentBreak:
		return "environment-break"
	default:
		return "outcome(?)"
	}
}

// IsTrap reports whether the outcome is a trap signal for the driver.
func (o Outcome) IsTrap() bool {
	return o == EnvironmentCall || o == EnvironmentBreak
}
