package domain

// Judge0 status ids below StatusProcessed are still queued or running.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusProcessed  = 3
)

// NoOutput is reported when a finished submission produced no text at all.
const NoOutput = "No output."

// SubmissionStatus mirrors the provider's {id, description} status object.
type SubmissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Submission is the provider's view of one execution job.
type Submission struct {
	Token         string           `json:"token"`
	Stdout        *string          `json:"stdout"`
	Stderr        *string          `json:"stderr"`
	CompileOutput *string          `json:"compile_output"`
	Status        SubmissionStatus `json:"status"`
}

// Terminal reports whether the provider has finished with the submission.
func (s *Submission) Terminal() bool {
	return s.Status.ID >= StatusProcessed
}

// Output picks the text shown to the user: stdout, then stderr, then compiler output.
// The choice says nothing about whether the run succeeded.
func (s *Submission) Output() string {
	for _, text := range []*string{s.Stdout, s.Stderr, s.CompileOutput} {
		if text != nil && *text != "" {
			return *text
		}
	}
	return NoOutput
}

// ExecutionResult is what the requesting connection receives.
type ExecutionResult struct {
	Output string `json:"output"`
	Status string `json:"status,omitempty"`
}
