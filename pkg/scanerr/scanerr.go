// Package scanerr holds the error taxonomy shared by the scanning pipeline.
//
// Per-file failures never abort a run: they are classified into a Kind,
// recorded as a Drop and tallied. Only ErrConfiguration is fatal.
package scanerr

import (
	"context"
	"io/fs"
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration marks invalid settings detected before scanning starts.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInterrupted marks a run cancelled during traversal or hashing.
	ErrInterrupted = errors.New("scan interrupted")

	// ErrStale marks a file whose size changed after it was stat-ed.
	ErrStale = errors.New("file changed since it was scanned")

	// ErrBusy marks a file locked by another process.
	ErrBusy = errors.New("file is locked by another process")
)

type Kind int

const (
	KindTransient Kind = iota
	KindPermission
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindTimeout:
		return "timeout"
	default:
		return "transient"
	}
}

// Classify maps a per-file error to its Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindTransient
	}
}

// Drop records a file removed from its group by a per-file error.
type Drop struct {
	Path string
	Kind Kind
	Err  error
}

func NewDrop(path string, err error) Drop {
	return Drop{Path: path, Kind: Classify(err), Err: err}
}

// Tally counts drops by kind. It is safe for concurrent use.
type Tally struct {
	transient  atomic.Int64
	permission atomic.Int64
	timeout    atomic.Int64
}

func (t *Tally) Add(drops ...Drop) {
	for _, d := range drops {
		switch d.Kind {
		case KindPermission:
			t.permission.Add(1)
		case KindTimeout:
			t.timeout.Add(1)
		default:
			t.transient.Add(1)
		}
	}
}

// Counts is a point-in-time copy of a Tally.
type Counts struct {
	Transient  int64 `json:"transient" yaml:"transient"`
	Permission int64 `json:"permission" yaml:"permission"`
	Timeout    int64 `json:"timeout" yaml:"timeout"`
}

func (c Counts) Total() int64 {
	return c.Transient + c.Permission + c.Timeout
}

func (t *Tally) Counts() Counts {
	return Counts{
		Transient:  t.transient.Load(),
		Permission: t.permission.Load(),
		Timeout:    t.timeout.Load(),
	}
}
