package engine

import "fmt"

type Status string

const (
	Succeeded Status = "succeeded"
	Degraded  Status = "degraded"
	Failed    Status = "failed"
)

/*
Step records how one best-effort stage of a query went. A Degraded step
contributed less than it should have, a Failed step contributed nothing.
*/
type Step struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

func (step Step) String() string {
	if step.Err == nil {
		return fmt.Sprintf("%s: %s", step.Name, step.Status)
	}

	return fmt.Sprintf("%s: %s (%v)", step.Name, step.Status, step.Err)
}

/*
Answer is the result of one query along with everything that went into the
prompt.
*/
type Answer struct {
	Text        string   `json:"text"`
	Prompt      string   `json:"-"`
	Connections []string `json:"connections"`
	Context     []string `json:"context"`
	History     string   `json:"history,omitempty"`
	Steps       []Step   `json:"steps"`
}

// Step returns the first recorded step called name.
func (answer *Answer) Step(name string) (Step, bool) {
	for _, step := range answer.Steps {
		if step.Name == name {
			return step, true
		}
	}

	return Step{}, false
}

// Degraded reports whether any step did not fully succeed.
func (answer *Answer) Degraded() bool {
	for _, step := range answer.Steps {
		if step.Status != Succeeded {
			return true
		}
	}

	return false
}

func (answer *Answer) record(name string, err error, onError Status) {
	step := Step{Name: name, Status: Succeeded}

	if err != nil {
		step.Status = onError
		step.Err = err
	}

	answer.Steps = append(answer.Steps, step)
}
