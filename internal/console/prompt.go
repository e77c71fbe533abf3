package console

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for values the flags did not supply.
type Prompter interface {
	Input(title string, secret bool, value *string) error
	Confirm(title string, value *bool) error
	MultiSelect(title string, options []string, value *[]string) error
}

var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// HuhPrompter renders prompts with huh forms.
type HuhPrompter struct{}

func (HuhPrompter) Input(title string, secret bool, value *string) error {
	if !isInteractive() {
		return fmt.Errorf("%s: %w", title, ErrNotInteractive)
	}
	input := huh.NewInput().Title(title).Value(value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (HuhPrompter) Confirm(title string, value *bool) error {
	if !isInteractive() {
		return fmt.Errorf("%s: %w", title, ErrNotInteractive)
	}
	confirm := huh.NewConfirm().Title(title).Value(value)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (HuhPrompter) MultiSelect(title string, options []string, value *[]string) error {
	if !isInteractive() {
		return fmt.Errorf("%s: %w", title, ErrNotInteractive)
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}
	field := huh.NewMultiSelect[string]().Title(title).Options(opts...).Value(value)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// ask fills value through the prompter when it is still empty.
func (c *Console) ask(title string, secret bool, value *string) error {
	if *value != "" {
		return nil
	}
	return c.Prompt.Input(title, secret, value)
}
