package ledger

import (
	"github.com/google/cel-go/cel"

	"ledgerpulse/internal/core/apperror"
)

// EntryFilter is a compiled CEL expression evaluated against entries,
// used for ad-hoc filtering on list queries beyond what ListFilter
// expresses (e.g. `category == 'sales' && amount > 100.0`).
type EntryFilter struct {
	expr    string
	program cel.Program
}

// filterEnv declares the attributes an expression may reference.
func filterEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("entryType", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("paymentMethod", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("remaining", cel.DoubleType),
		cel.Variable("settled", cel.BoolType),
		cel.Variable("derived", cel.BoolType),
		cel.Variable("notes", cel.StringType),
	)
}

// CompileEntryFilter parses and type-checks a filter expression.
// Returns a validation error for malformed or non-boolean expressions.
func CompileEntryFilter(expr string) (*EntryFilter, error) {
	env, err := filterEnv()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, apperror.NewValidation("invalid filter expression").
			WithDetail("expression", expr).
			WithDetail("error", iss.Err().Error())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, apperror.NewValidation("filter expression must evaluate to a boolean").
			WithDetail("expression", expr)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	return &EntryFilter{expr: expr, program: program}, nil
}

// Matches evaluates the filter against a single entry.
func (f *EntryFilter) Matches(e *Entry) (bool, error) {
	amount, _ := e.Amount.Float64()
	remaining, _ := e.RemainingAmount.Float64()

	out, _, err := f.program.Eval(map[string]any{
		"entryType":     string(e.Type),
		"category":      string(e.Category),
		"paymentMethod": string(e.PaymentMethod),
		"amount":        amount,
		"remaining":     remaining,
		"settled":       e.Settled,
		"derived":       e.IsSettlementDerived(),
		"notes":         e.Notes,
	})
	if err != nil {
		return false, apperror.NewValidation("filter evaluation failed").
			WithDetail("expression", f.expr).
			WithDetail("error", err.Error())
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewValidation("filter expression must evaluate to a boolean").
			WithDetail("expression", f.expr)
	}
	return matched, nil
}

// Apply filters a slice of entries in place order, returning matches.
func (f *EntryFilter) Apply(entries []Entry) ([]Entry, error) {
	matched := make([]Entry, 0, len(entries))
	for i := range entries {
		ok, err := f.Matches(&entries[i])
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, entries[i])
		}
	}
	return matched, nil
}
