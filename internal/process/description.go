package process

// Description is the structured account of a recorded business process.
type Description struct {
	ProcessName      string        `json:"process_name"`
	ShortDescription string        `json:"short_process_description"`
	Applications     []Application `json:"list_of_applications"`
	Steps            []StepGroup   `json:"list_of_steps"`
	Exceptions       []Exception   `json:"exceptions"`
	Clarifications   []string      `json:"clarifications"`
}

// Application is a software system used during the process. URL is empty when
// the model reported null.
type Application struct {
	Name string `json:"application_name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// StepGroup is a top-level step numbered "N.0" with its ordered sub-steps.
type StepGroup struct {
	Numbering string    `json:"numbering"`
	GroupName string    `json:"group_name"`
	Timestamp string    `json:"time_stamp"`
	SubSteps  []SubStep `json:"sub_steps"`
}

// SubStep is a single action numbered "N.M" inside a group.
type SubStep struct {
	Numbering string `json:"numbering"`
	Step      string `json:"step"`
	Timestamp string `json:"time_stamp"`
}

// Exception is a deviation from the main flow noted in the recording.
type Exception struct {
	Name        string `json:"exception"`
	Description string `json:"description"`
}

// SubStepCount returns the number of sub-steps across all groups.
func (d Description) SubStepCount() int {
	total := 0
	for _, group := range d.Steps {
		total += len(group.SubSteps)
	}
	return total
}
