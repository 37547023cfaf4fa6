package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets lists the paths a run reads and writes. Empty fields are skipped.
type Targets struct {
	FramesRoot     string
	Annotations    string
	ClassMapping   string
	Output         string
	LogDir         string
	MetricsListen  string
}

// RunAll executes the checks that apply to targets.
func RunAll(ctx context.Context, targets Targets) []Result {
	var results []Result
	if targets.FramesRoot != "" {
		results = append(results, CheckDirectoryReadable("Frames root", targets.FramesRoot))
	}
	if targets.Annotations != "" {
		results = append(results, CheckFileReadable("Annotations", targets.Annotations))
	}
	if targets.ClassMapping != "" {
		results = append(results, CheckFileReadable("Class mapping", targets.ClassMapping))
	}
	if targets.Output != "" {
		results = append(results, CheckOutputWritable("Output", targets.Output))
	}
	if targets.LogDir != "" {
		results = append(results, CheckOutputWritable("Log directory", targets.LogDir))
	}
	if targets.MetricsListen != "" {
		results = append(results, CheckListenAddress(ctx, targets.MetricsListen))
	}
	return results
}

// Failed joins the details of every failed result, or returns nil when all
// passed.
func Failed(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(failures, "; "))
}
