package model

// ChatRequest is the body of POST /generate.
type ChatRequest struct {
	Instruction string `json:"instruction"`
	InputText   string `json:"input_text"`
}

// UserQuery joins the instruction with the optional input text (e.g. the
// math problem being asked about).
func (r ChatRequest) UserQuery() string {
	if r.InputText == "" {
		return r.Instruction
	}
	return r.Instruction + " " + r.InputText
}

// Intent is the binary classification of a user request.
type Intent int

const (
	// IntentSolve answers an existing question from retrieved context.
	IntentSolve Intent = iota
	// IntentGenerate creates new exercises or explanations.
	IntentGenerate
)

func (i Intent) String() string {
	if i == IntentGenerate {
		return "GENERATE"
	}
	return "SOLVE"
}
