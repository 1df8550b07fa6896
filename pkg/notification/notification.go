package notification

import (
	"time"

	"github.com/autobrr/dupescan/pkg/dedupe"
)

type Action int

const (
	ActionDuplicate Action = iota + 1
	ActionHardlink
)

// ActionFor returns the action describing a cluster.
func ActionFor(c dedupe.Cluster) Action {
	if c.Kind == dedupe.KindHardlink {
		return ActionHardlink
	}
	return ActionDuplicate
}

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field) error
	BuildField(action Action, options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

type BuildOptions struct {
	Cluster dedupe.Cluster
	Index   int
}
