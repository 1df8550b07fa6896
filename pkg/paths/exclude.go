package paths

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/scanerr"
)

const regexPrefix = "re:"

// DefaultExcludes are the system locations skipped unless configured otherwise.
var DefaultExcludes = []string{"/proc/", "/dev/", "/mnt/", "/sys/", "/boot/", "/var/"}

type matcher struct {
	text string
	re   *regexp2.Regexp
}

// Excluder matches absolute paths against exclusion patterns. Plain
// patterns match as substrings, patterns prefixed with "re:" are regular
// expressions.
type Excluder struct {
	matchers []matcher
}

func NewExcluder(patterns []string) (*Excluder, error) {
	e := &Excluder{}

	for _, p := range patterns {
		if p == "" {
			continue
		}

		if !strings.HasPrefix(p, regexPrefix) {
			e.matchers = append(e.matchers, matcher{text: p})
			continue
		}

		re, err := regexp2.Compile(strings.TrimPrefix(p, regexPrefix), regexp2.None)
		if err != nil {
			return nil, errors.Wrapf(scanerr.ErrConfiguration, "compile exclude pattern %q: %v", p, err)
		}
		e.matchers = append(e.matchers, matcher{text: p, re: re})
	}

	return e, nil
}

// Match returns the first pattern matching path. Directories are matched
// with a trailing separator so "/var/" prunes /var itself.
func (e *Excluder) Match(path string, isDir bool) (string, bool) {
	if e == nil {
		return "", false
	}

	if isDir && !strings.HasSuffix(path, "/") {
		path += "/"
	}

	for _, m := range e.matchers {
		if m.re == nil {
			if strings.Contains(path, m.text) {
				return m.text, true
			}
			continue
		}

		ok, err := m.re.MatchString(path)
		if err != nil {
			log.WithError(err).Warnf("Failed matching exclude pattern %q against %s", m.text, path)
			continue
		}
		if ok {
			return m.text, true
		}
	}

	return "", false
}
