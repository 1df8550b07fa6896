package confirm

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/logger"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

const compareChunk = 64 * 1024

// Compare proves equality with byte-by-byte comparison against one
// representative per equivalence class. The system cmp tool is used when
// it is installed, otherwise files are compared in-process.
type Compare struct {
	IO      fileio.Options
	cmpPath string
}

func NewCompare(opts fileio.Options) *Compare {
	c := &Compare{IO: opts}
	if path, err := exec.LookPath("cmp"); err == nil {
		c.cmpPath = path
	} else {
		logger.GetLogger("confirm").Debug("cmp not found, comparing in-process")
	}
	return c
}

func (c *Compare) Name() string {
	return "compare"
}

// class is an equivalence class; members[0] is its representative.
type class struct {
	members []filerecord.FileRecord
}

func (c *Compare) Partition(ctx context.Context, members []filerecord.FileRecord) (Outcome, error) {
	var (
		out     Outcome
		classes []*class
	)

next:
	for _, rec := range members {
		if err := checkSize(rec); err != nil {
			out.Drops = append(out.Drops, scanerr.NewDrop(rec.Path, err))
			continue
		}

		for i := 0; i < len(classes); {
			cl := classes[i]
			rep := cl.members[0]

			equal, err := c.Equal(ctx, rep, rec)
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}

			var fe *fileError
			if errors.As(err, &fe) {
				out.Drops = append(out.Drops, scanerr.NewDrop(fe.path, fe.err))
				if fe.path == rec.Path {
					continue next
				}

				// the representative is gone, promote the next member
				cl.members = cl.members[1:]
				if len(cl.members) == 0 {
					classes = append(classes[:i], classes[i+1:]...)
				}
				continue
			}

			if equal {
				cl.members = append(cl.members, rec)
				continue next
			}
			i++
		}

		classes = append(classes, &class{members: []filerecord.FileRecord{rec}})
	}

	for _, cl := range classes {
		if len(cl.members) < 2 {
			out.Unique++
			continue
		}
		out.Groups = append(out.Groups, Group{Members: cl.members})
	}

	sortGroups(out.Groups)
	return out, nil
}

// Equal reports whether a and b have identical content. Per-file failures
// are returned as a *fileError naming the file at fault.
func (c *Compare) Equal(ctx context.Context, a, b filerecord.FileRecord) (bool, error) {
	if c.cmpPath != "" {
		equal, ok := c.external(ctx, a, b)
		if ok {
			return equal, nil
		}
	}

	return c.inProcess(ctx, a, b)
}

// external runs cmp -s. ok is false when cmp could not decide, e.g. a file
// became unreadable, so that the in-process path can attribute the error.
func (c *Compare) external(ctx context.Context, a, b filerecord.FileRecord) (equal bool, ok bool) {
	if c.IO.Limiter != nil {
		c.IO.Limiter.Take()
	}

	if c.IO.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.IO.Timeout)
		defer cancel()
	}

	err := exec.CommandContext(ctx, c.cmpPath, "-s", a.Path, b.Path).Run()
	if err == nil {
		return true, true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, true
	}

	return false, false
}

func (c *Compare) inProcess(ctx context.Context, a, b filerecord.FileRecord) (bool, error) {
	var equal bool

	err := c.IO.Read(ctx, a.Path, func(ra io.Reader) error {
		innerErr := c.IO.Read(ctx, b.Path, func(rb io.Reader) error {
			var err error
			equal, err = sameContent(ra, rb, a.Path, b.Path)
			return err
		})
		if innerErr == nil {
			return nil
		}

		var fe *fileError
		if errors.As(innerErr, &fe) {
			return innerErr
		}
		return &fileError{path: b.Path, err: innerErr}
	})
	if err == nil {
		return equal, nil
	}

	var fe *fileError
	if errors.As(err, &fe) {
		return false, fe
	}
	return false, &fileError{path: a.Path, err: err}
}

func sameContent(ra, rb io.Reader, pathA, pathB string) (bool, error) {
	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)

	for {
		na, errA := io.ReadFull(ra, bufA)
		if errA != nil && errA != io.EOF && errA != io.ErrUnexpectedEOF {
			return false, &fileError{path: pathA, err: errA}
		}

		nb, errB := io.ReadFull(rb, bufB)
		if errB != nil && errB != io.EOF && errB != io.ErrUnexpectedEOF {
			return false, &fileError{path: pathB, err: errB}
		}

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		if errA != nil {
			return true, nil
		}
	}
}

// checkSize drops files that vanished or changed size since they were stat-ed.
func checkSize(rec filerecord.FileRecord) error {
	info, err := os.Stat(rec.Path)
	if err != nil {
		return errors.Wrap(err, "stat file")
	}
	if info.Size() != rec.Size {
		return errors.Wrapf(scanerr.ErrStale, "%s: expected %d bytes, found %d", rec.Path, rec.Size, info.Size())
	}
	return nil
}
