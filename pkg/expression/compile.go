package expression

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/scanerr"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// Compile type-checks every expression against the record environment.
// Expressions must evaluate to a bool.
func Compile(expressions []string) ([]CompiledExpression, error) {
	compiled := make([]CompiledExpression, 0, len(expressions))

	for _, text := range expressions {
		program, err := expr.Compile(text, expr.Env(&evalContext{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(scanerr.ErrConfiguration, "compile expression %q: %v", text, err)
		}

		compiled = append(compiled, CompiledExpression{
			Program: program,
			Text:    text,
		})
	}

	return compiled, nil
}
