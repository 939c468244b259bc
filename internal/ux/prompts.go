package ux

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks line-based questions. It is used when the full-screen forms
// are disabled (--plain, CI, or a non-terminal stdin).
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out. nil values
// default to stdin and stdout.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, bool) {
	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return "", false
	}
	return strings.TrimSpace(response), true
}

// Confirm prompts the user for yes/no confirmation
func (p *Prompter) Confirm(message string, defaultYes bool) bool {
	prompt := message
	if defaultYes {
		prompt += " (Y/n): "
	} else {
		prompt += " (y/N): "
	}

	fmt.Fprint(p.out, prompt)
	response, ok := p.readLine()
	if !ok || response == "" {
		return defaultYes
	}

	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

// String prompts the user for a string value
func (p *Prompter) String(message string, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", message, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", message)
	}

	response, ok := p.readLine()
	if !ok || response == "" {
		return defaultValue
	}
	return response
}

// Select prompts the user to select from a list of options
func (p *Prompter) Select(message string, options []string, defaultIdx int) (string, int) {
	if len(options) == 0 {
		return "", -1
	}
	if defaultIdx < 0 || defaultIdx >= len(options) {
		defaultIdx = 0
	}

	fmt.Fprintln(p.out, message)
	for i, opt := range options {
		marker := " "
		if i == defaultIdx {
			marker = ">"
		}
		fmt.Fprintf(p.out, " %s %d. %s\n", marker, i+1, opt)
	}

	fmt.Fprintf(p.out, "Enter selection [%d]: ", defaultIdx+1)
	response, ok := p.readLine()
	if !ok || response == "" {
		return options[defaultIdx], defaultIdx
	}

	var selection int
	if _, err := fmt.Sscanf(response, "%d", &selection); err != nil || selection < 1 || selection > len(options) {
		// Accept the option text itself.
		for i, opt := range options {
			if strings.EqualFold(opt, response) {
				return opt, i
			}
		}
		return options[defaultIdx], defaultIdx
	}

	return options[selection-1], selection - 1
}
