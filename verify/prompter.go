package verify

import "context"

// Prompter obtains a free-form answer from whoever is driving the run.
// An empty answer means "no correction".
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, question string) (string, error)

func (f PrompterFunc) Prompt(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}
