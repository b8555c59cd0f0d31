package testsupport

import (
	"encoding/json"

	"procscribe/internal/process"
)

// SampleDescription returns a small two-application, two-group process.
func SampleDescription() process.Description {
	return process.Description{
		ProcessName:      "Invoice Approval",
		ShortDescription: "Approve supplier invoices in the ERP after checking the purchase order.",
		Applications: []process.Application{
			{Name: "SAP GUI", Type: "desktop", URL: ""},
			{Name: "Outlook Web", Type: "web", URL: "https://outlook.office.com"},
		},
		Steps: []process.StepGroup{
			{
				Numbering: "1.0",
				GroupName: "Open the invoice in SAP GUI",
				Timestamp: "00:05",
				SubSteps: []process.SubStep{
					{Numbering: "1.1", Step: "Start transaction MIR4", Timestamp: "00:07"},
					{Numbering: "1.2", Step: "Enter the invoice number and press 'Enter'", Timestamp: "00:15"},
				},
			},
			{
				Numbering: "2.0",
				GroupName: "Confirm approval by email",
				Timestamp: "01:10",
				SubSteps: []process.SubStep{
					{Numbering: "2.1", Step: "Reply \"Approved\" to the requester", Timestamp: "01:12"},
				},
			},
		},
		Exceptions: []process.Exception{
			{Name: "Missing PO", Description: "Return the invoice to the supplier."},
		},
		Clarifications: []string{"Who approves invoices above the threshold?"},
	}
}

// SampleJSON returns the raw JSON of SampleDescription with a null URL for
// the desktop application, as the model emits it.
func SampleJSON() string {
	desc := SampleDescription()
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		panic(err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		panic(err)
	}
	apps := generic["list_of_applications"].([]any)
	apps[0].(map[string]any)["url"] = nil
	data, err = json.MarshalIndent(generic, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// SampleResponse wraps SampleJSON in prose the way the model typically answers.
func SampleResponse() string {
	return "Here is the structured outline of the recorded process.\n\n```json\n" +
		SampleJSON() +
		"\n```\n\nLet me know if any step needs more detail."
}
