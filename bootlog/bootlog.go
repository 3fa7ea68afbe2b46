// Package bootlog narrates multi-processor bring-up milestones: one line
// per milestone, never one per loop iteration, routed through a
// structured logger so a host can filter or redirect it.
package bootlog

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetOutput redirects boot narration, e.g. to a test buffer.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Milestone(msg string, fields logrus.Fields) {
	log.WithFields(fields).Info(msg)
}

func Warn(msg string, fields logrus.Fields) {
	log.WithFields(fields).Warn(msg)
}

// Fatalf logs a descriptive message and panics. Every fatal path in this
// module goes through here instead of a bare panic so the message is
// captured by whatever is consuming the structured log too.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg)
	panic(msg)
}
