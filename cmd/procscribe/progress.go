package main

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// progress is a spinner that only animates on a terminal.
type progress struct {
	spinner *spinner.Spinner
}

func startProgress(w io.Writer, message string) *progress {
	if !isTerminal(w) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &progress{spinner: s}
}

func (p *progress) Stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}
