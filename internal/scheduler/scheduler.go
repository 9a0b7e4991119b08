// Package scheduler runs time-gated tasks cooperatively on the caller's
// goroutine. A task never preempts another; each runs to completion.
package scheduler

import "github.com/sweeney/vitals-monitor/internal/logic"

// Task is a unit of periodic work. Period 0 means every pass.
type Task struct {
	Name   string
	Period uint32
	Run    func(now logic.Ticks)
}

// TaskStats reports how often a task has run.
type TaskStats struct {
	Name   string
	Period uint32
	Runs   uint64
}

type entry struct {
	task Task
	gate logic.Gate
	runs uint64
}

// Scheduler holds an ordered task table. Registration order is execution
// order within a pass.
type Scheduler struct {
	start  logic.Ticks
	tasks  []*entry
	yield  func()
	passes uint64
}

// New creates a scheduler whose periodic tasks first become due one period
// after start. yield, if non-nil, is called between tasks.
func New(start logic.Ticks, yield func()) *Scheduler {
	return &Scheduler{start: start, yield: yield}
}

// Add appends a task to the table.
func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, &entry{
		task: t,
		gate: logic.NewGate(t.Period, s.start),
	})
}

// Tick performs one cooperative pass: each task whose period has elapsed
// since its last run is executed, in order.
func (s *Scheduler) Tick(now logic.Ticks) {
	for i, e := range s.tasks {
		if i > 0 && s.yield != nil {
			s.yield()
		}
		if !e.gate.Ready(now) {
			continue
		}
		e.task.Run(now)
		e.runs++
	}
	s.passes++
}

// Passes returns the number of completed passes.
func (s *Scheduler) Passes() uint64 {
	return s.passes
}

// Stats returns per-task run counts in execution order.
func (s *Scheduler) Stats() []TaskStats {
	out := make([]TaskStats, len(s.tasks))
	for i, e := range s.tasks {
		out[i] = TaskStats{Name: e.task.Name, Period: e.task.Period, Runs: e.runs}
	}
	return out
}
