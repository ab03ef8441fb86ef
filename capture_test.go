package jobsystem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type CaptureTestSuite struct {
	suite.Suite
}

func TestCaptureTestSuite(t *testing.T) {
	suite.Run(t, new(CaptureTestSuite))
}

func (ts *CaptureTestSuite) TestScheduleCaptureCopiesValueAndRecordsSize() {
	s := New(Config{NumWorkers: 1, PoolCapacity: 64, Logger: zap.NewNop()})
	w := s.JoinAsWorker()

	type point struct{ x, y int }
	src := point{x: 3, y: 4}

	var got point
	w.runningJob = w.allocJob(func(w *Worker) {})
	j := ScheduleCapture(w, src, func(w *Worker, data *point) {
		got = *data
	})

	ts.EqualValues(int(unsafe.Sizeof(point{})), j.functorSize)

	src.x = 999 // mutating the original must not affect the copy already captured.
	popped, ok := w.global.Pop()
	ts.True(ok)
	ts.Same(j, popped)

	popped.fn(w)
	ts.Equal(point{x: 3, y: 4}, got)
}

func (ts *CaptureTestSuite) TestScheduleCaptureParentsToAmbientJob() {
	s := New(Config{NumWorkers: 1, PoolCapacity: 64, Logger: zap.NewNop()})
	w := s.JoinAsWorker()

	w.runningJob = w.allocJob(func(w *Worker) {})
	parent := w.runningJob
	ts.EqualValues(1, parent.JobsLeft())

	j := ScheduleCapture(w, 7, func(w *Worker, data *int) {})
	ts.Same(parent, j.Parent())
	ts.EqualValues(2, parent.JobsLeft())
}

func (ts *CaptureTestSuite) TestScheduleCapturePanicsWhenOversized() {
	s := New(Config{NumWorkers: 1, PoolCapacity: 64, Logger: zap.NewNop()})
	w := s.JoinAsWorker()
	w.runningJob = w.allocJob(func(w *Worker) {})

	type oversized struct {
		data [FunctorCapacity + 1]byte
	}

	ts.Panics(func() {
		ScheduleCapture(w, oversized{}, func(w *Worker, data *oversized) {})
	})
}
