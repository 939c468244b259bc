package cmd

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/studyplan/internal/tui"
	"github.com/felixgeelhaar/studyplan/internal/ux"
)

// prompter returns the line-based prompter shared by the command. One reader
// is kept so buffered input is not lost between questions.
func (cc *CommandContext) prompter() *ux.Prompter {
	if cc.lines == nil {
		cc.lines = ux.NewPrompter(cc.In, cc.ErrOut)
	}
	return cc.lines
}

// Ask prompts for a value with a form when interactive and a plain line
// otherwise.
func (cc *CommandContext) Ask(p tui.Prompt) (string, error) {
	var value string
	if cc.Interactive() {
		v, err := tui.PromptForString(p)
		if err != nil {
			return "", err
		}
		value = v
	} else {
		value = strings.TrimSpace(cc.prompter().String(p.Message, p.Default))
	}
	if p.Required && value == "" {
		return "", fmt.Errorf("no answer given for %q", p.Message)
	}
	return value, nil
}

// Confirm asks a yes/no question. Without a terminal the default applies
// unless an answer is piped in.
func (cc *CommandContext) Confirm(message string, defaultYes bool) (bool, error) {
	if cc.Interactive() {
		return tui.PromptForConfirmation(message, defaultYes)
	}
	return cc.prompter().Confirm(message, defaultYes), nil
}

// Choose asks for one of options and returns its index.
func (cc *CommandContext) Choose(message string, options []string) (string, int) {
	return cc.prompter().Select(message, options, 0)
}
