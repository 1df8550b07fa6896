package scanerr

import (
	"context"
	"io/fs"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not exist", &os.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, KindTransient},
		{"permission", &os.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, KindPermission},
		{"wrapped permission", errors.Wrap(fs.ErrPermission, "read"), KindPermission},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "read /x"), KindTimeout},
		{"stale", ErrStale, KindTransient},
		{"busy", ErrBusy, KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestTally(t *testing.T) {
	var tally Tally

	tally.Add(
		NewDrop("/a", fs.ErrNotExist),
		NewDrop("/b", fs.ErrPermission),
		NewDrop("/c", context.DeadlineExceeded),
		NewDrop("/d", ErrStale),
	)

	c := tally.Counts()
	assert.Equal(t, Counts{Transient: 2, Permission: 1, Timeout: 1}, c)
	assert.EqualValues(t, 4, c.Total())
}
