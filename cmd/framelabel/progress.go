package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"framelabel/internal/logging"
)

// progressReporter draws a bar on terminals and falls back to bucketed log
// lines everywhere else.
type progressReporter struct {
	out     io.Writer
	logger  *slog.Logger
	stage   string
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
}

func newProgressReporter(out io.Writer, logger *slog.Logger, stage string) *progressReporter {
	p := &progressReporter{out: out, logger: logger, stage: stage}
	if !isTerminal(out) {
		p.sampler = logging.NewProgressSampler(10)
	}
	return p
}

func (p *progressReporter) update(done, total int) {
	if total <= 0 {
		return
	}
	if p.sampler != nil {
		percent := float64(done) * 100 / float64(total)
		if p.sampler.ShouldLog(percent, p.stage) {
			p.logger.Info("progress",
				logging.String("stage", p.stage),
				logging.Int("done", done),
				logging.Int("total", total),
				logging.Float64("percent", percent),
			)
		}
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(p.stage),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
