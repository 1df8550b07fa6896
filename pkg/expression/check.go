package expression

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

// evalContext is the environment expressions are evaluated against.
type evalContext struct {
	Path      string
	Name      string
	Ext       string
	Dir       string
	Size      int64
	LinkCount uint64
	Owner     uint32
	Modified  time.Time
	AgeDays   float64

	ctx context.Context
}

func newEvalContext(ctx context.Context, rec filerecord.FileRecord, now time.Time) *evalContext {
	return &evalContext{
		Path:      rec.Path,
		Name:      filepath.Base(rec.Path),
		Ext:       strings.ToLower(strings.TrimPrefix(filepath.Ext(rec.Path), ".")),
		Dir:       filepath.Dir(rec.Path),
		Size:      rec.Size,
		LinkCount: rec.LinkCount,
		Owner:     rec.Owner,
		Modified:  rec.Modified,
		AgeDays:   now.Sub(rec.Newest()).Hours() / 24,
		ctx:       ctx,
	}
}

// HasAnyExt reports whether the file extension is one of exts (without dot, case-insensitive).
func (e *evalContext) HasAnyExt(exts ...string) bool {
	for _, ext := range exts {
		if strings.EqualFold(strings.TrimPrefix(ext, "."), e.Ext) {
			return true
		}
	}
	return false
}

func CheckRecordSingleMatch(ctx context.Context, rec filerecord.FileRecord, expressions []CompiledExpression) (bool, error) {
	match, _, err := CheckRecordSingleMatchWithReason(ctx, rec, expressions)
	return match, err
}

// CheckRecordSingleMatchWithReason returns the text of the first expression
// that matched rec.
func CheckRecordSingleMatchWithReason(ctx context.Context, rec filerecord.FileRecord, expressions []CompiledExpression) (bool, string, error) {
	if len(expressions) == 0 {
		return false, "", nil
	}

	env := newEvalContext(ctx, rec, time.Now())

	for _, expression := range expressions {
		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, "", errors.Wrapf(err, "check expression %q", expression.Text)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, "", errors.Errorf("expression %q returned %T, expected bool", expression.Text, result)
		}

		if expResult {
			return true, expression.Text, nil
		}
	}

	return false, "", nil
}
