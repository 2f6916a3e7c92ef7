package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/nutriplanner/domain"
)

var _ domain.Llm = &Echo{}

// Echo is a local provider that repeats the prompt back. It needs no
// credentials and is selected with llm.provider: echo.
type Echo struct{}

func (e *Echo) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("echo (%d chars): %s", len(prompt), prompt), nil
}
