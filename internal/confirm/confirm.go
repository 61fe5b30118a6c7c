// Package confirm models the mandatory operator confirmation that precedes
// destructive actions (cancel item, release a table or tab, close the register).
package confirm

import (
	"context"

	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

// Prompt describes what the operator is asked to confirm.
type Prompt struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, prompt Prompt) (bool, error)

func (f Func) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// Answer is a fixed reply, used when the UI already collected the decision.
type Answer bool

func (a Answer) Confirm(context.Context, Prompt) (bool, error) {
	return bool(a), nil
}

// Ask runs the confirmer and maps a missing confirmer or a "no" to a DECLINED
// error. Callers must not perform the action unless Ask returns nil.
func Ask(ctx context.Context, c Confirmer, prompt Prompt) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDeclined, prompt.Action+" requires confirmation")
	}
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDeclined, prompt.Action+" declined")
	}
	return nil
}
