package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/config"

	"github.com/charmbracelet/huh"
)

// dateForm wraps the jump-to-date prompt. The value lives behind a pointer so
// copies of the Model keep editing the same string.
type dateForm struct {
	form  *huh.Form
	value *string
}

func newDateForm(current time.Time) dateForm {
	value := new(string)
	*value = current.Format("2006-01-02")
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Jump to date").
				Description("YYYY-MM-DD, balances replay from the current day").
				Placeholder("2006-01-02").
				Value(value).
				Validate(validateDate),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)
	return dateForm{form: form, value: value}
}

func validateDate(s string) error {
	if _, err := config.ParseDate(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("not a date: %q", s)
	}
	return nil
}

// date parses the submitted value.
func (f dateForm) date() (time.Time, error) {
	return config.ParseDate(strings.TrimSpace(*f.value))
}
