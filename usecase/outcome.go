package usecase

import (
	"html/template"
	"strings"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Outcome is what one user action shows on the page.
type Outcome struct {
	Level      Level
	Message    string
	Body       template.HTML
	Completion string
}

func warning(msg string) Outcome { return Outcome{Level: LevelWarning, Message: msg} }

func failure(err error) Outcome { return Outcome{Level: LevelError, Message: "Error: " + err.Error()} }

func isBlank(q string) bool { return strings.TrimSpace(q) == "" }
