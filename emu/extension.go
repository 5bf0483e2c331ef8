package emu

// Extension is an instruction-set module that may claim words the base
// engine declines. Execute must leave all state untouched when it returns
// NotRecognized.
type Extension interface {
	Name() string
	Execute(word uint32, base *Base) Outcome
}

// BaseName is the handler name reported for words the base engine runs.
const BaseName = "rv32i"

// baseExtension presents the base engine as the first dispatch candidate.
type baseExtension struct{}

func (baseExtension) Name() string { return BaseName }

func (baseExtension) Execute(word uint32, base *Base) Outcome {
	return base.Execute(word)
}

// Dispatch offers word to each candidate in order and returns the first
// outcome other than NotRecognized, along with the name of the candidate
// that produced it.
func Dispatch(word uint32, base *Base, candidates []Extension) (Outcome, string) {
	for _, c := range candidates {
		if outcome := c.Execute(word, base); outcome != NotRecognized {
			return outcome, c.Name()
		}
	}
	return NotRecognized, ""
}
