package diagram

import (
	"bytes"
	"encoding/json"
	"strings"

	"procscribe/internal/process"
)

var quoteReplacer = strings.NewReplacer(`"`, `'`)

// StepsMessage serializes steps as the user turn of the diagram request.
// Double quotes inside labels become single quotes.
func StepsMessage(steps []process.StepGroup) (string, error) {
	cleaned := make([]process.StepGroup, len(steps))
	for i, group := range steps {
		group.GroupName = quoteReplacer.Replace(group.GroupName)
		subs := make([]process.SubStep, len(group.SubSteps))
		for j, sub := range group.SubSteps {
			sub.Step = quoteReplacer.Replace(sub.Step)
			subs[j] = sub
		}
		group.SubSteps = subs
		cleaned[i] = group
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(cleaned); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
