package testhelpers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/onsi/ginkgo/v2"

	"github.com/grafana/changeset/log"
)

var levelColors = map[string]*color.Color{
	"DEBUG": color.New(color.FgHiBlack),
	"INFO":  color.New(color.FgBlue),
	"WARN":  color.New(color.FgYellow),
	"ERROR": color.New(color.FgRed),
}

// TestLogger writes client and store logs to the GinkgoWriter, so they only
// show up for failing specs.
type TestLogger struct{}

func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Logf matches the Logf sink of LocalRepo.
func (l *TestLogger) Logf(format string, args ...any) {
	ginkgo.GinkgoWriter.Printf(format+"\n", args...)
}

func (l *TestLogger) Debug(msg string, keysAndValues ...any) { l.write("DEBUG", msg, keysAndValues) }
func (l *TestLogger) Info(msg string, keysAndValues ...any)  { l.write("INFO", msg, keysAndValues) }
func (l *TestLogger) Warn(msg string, keysAndValues ...any)  { l.write("WARN", msg, keysAndValues) }
func (l *TestLogger) Error(msg string, keysAndValues ...any) { l.write("ERROR", msg, keysAndValues) }

func (l *TestLogger) write(level, msg string, kv []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	ginkgo.GinkgoWriter.Println(levelColors[level].Sprint(b.String()))
}

var _ log.Logger = (*TestLogger)(nil)
