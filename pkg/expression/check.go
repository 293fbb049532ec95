package expression

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/pkg/errors"
)

// CheckFile reports whether f satisfies the expression. A nil expression accepts everything.
func CheckFile(ctx context.Context, f *File, expression *CompiledExpression) (bool, error) {
	if expression == nil {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	result, err := expr.Run(expression.Program, f)
	if err != nil {
		return false, errors.Wrap(err, "check expression")
	}

	match, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("expression result is not a bool: %T", result)
	}

	return match, nil
}
