package expression

import (
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// File is the environment a filter expression is evaluated against,
// e.g. `Size > 1024 && Ext not in [".log", ".tmp"]`.
type File struct {
	Path    string
	Name    string
	Ext     string
	Dir     string
	Size    int64
	ModTime time.Time
	AgeDays float64
}

func Compile(text string) (*CompiledExpression, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	program, err := expr.Compile(text, expr.Env(File{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "compile expression %q", text)
	}

	return &CompiledExpression{
		Program: program,
		Text:    text,
	}, nil
}
