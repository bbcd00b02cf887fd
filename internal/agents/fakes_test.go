package agents

import (
	"context"
	"errors"

	"github.com/ProfessorFess/Stack-Sage/internal/llm"
)

type erroringCompleter struct{}

func (erroringCompleter) Complete(ctx context.Context, messages []llm.Message, apiKeyOverride string) (llm.Response, error) {
	return llm.Response{}, errors.New("upstream unavailable")
}
