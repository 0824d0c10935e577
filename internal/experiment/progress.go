package experiment

import (
	"github.com/san-kum/blobsim/internal/dynamo"
	"go.uber.org/zap"
)

const progressMarks = 10

// progressLogger logs at debug level each time the simulated time crosses
// another 1/marks of the run.
type progressLogger struct {
	logger   *zap.Logger
	duration float64
	marks    int
	next     int
}

func newProgressLogger(l *zap.Logger, duration float64, marks int) *progressLogger {
	return &progressLogger{logger: l, duration: duration, marks: marks, next: 1}
}

func (p *progressLogger) OnStep(x dynamo.State, t float64) {
	crossed := false
	for p.next <= p.marks && t >= p.mark(p.next) {
		p.next++
		crossed = true
	}
	if crossed {
		p.logger.Debug("progress",
			zap.Int("percent", 100*(p.next-1)/p.marks),
			zap.Float64("time", t))
	}
}

// mark is the time of the k-th mark, loosened so accumulated dt rounding
// still reaches the last one.
func (p *progressLogger) mark(k int) float64 {
	return float64(k) * p.duration / float64(p.marks) * (1 - 1e-9)
}
