package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/vela-lang/vela/vlbc"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	posLabel   = color.New(color.Bold)
)

func configureColor(mode string, tty bool) {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !tty
	}
}

// renderedError is a diagnostic already formatted for the terminal; the
// top-level handler prints it verbatim.
type renderedError struct {
	msg  string
	wrap error
}

func (e *renderedError) Error() string { return e.msg }
func (e *renderedError) Unwrap() error { return e.wrap }

// diag attributes err to path, keeping line/column when the error carries
// a source position.
func diag(path string, err error) error {
	var verr *vlbc.Error
	if errors.As(err, &verr) && verr.Line > 0 {
		return &renderedError{
			msg: fmt.Sprintf("%s %s %s",
				posLabel.Sprintf("%s:%d:%d:", path, verr.Line, verr.Column),
				errorLabel.Sprint("error:"),
				verr.Msg),
			wrap: err,
		}
	}
	return &renderedError{
		msg:  fmt.Sprintf("%s %s %v", posLabel.Sprintf("%s:", path), errorLabel.Sprint("error:"), err),
		wrap: err,
	}
}

// renderError formats a top-level failure for stderr.
func renderError(err error) string {
	var rendered *renderedError
	if errors.As(err, &rendered) {
		return rendered.msg
	}
	return fmt.Sprintf("%s %v", errorLabel.Sprint("error:"), err)
}
