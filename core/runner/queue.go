package runner

import (
	"container/heap"
	"sync"

	"schedbench/core/models"
)

// ExperimentQueue orders pending experiments by submission time. Runs
// own the whole host while they execute, so the queue only decides who
// goes next, never how many run at once.
type ExperimentQueue struct {
	items []*queuedExperiment
	mu    sync.Mutex
}

type queuedExperiment struct {
	exp   *models.Experiment
	index int
}

// NewExperimentQueue creates an empty queue.
func NewExperimentQueue() *ExperimentQueue {
	q := &ExperimentQueue{items: make([]*queuedExperiment, 0)}
	heap.Init(q)
	return q
}

// Enqueue adds an experiment to the queue.
func (q *ExperimentQueue) Enqueue(exp *models.Experiment) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(q, &queuedExperiment{exp: exp})
}

// PopExperiment removes and returns the earliest-submitted experiment,
// or nil when the queue is empty.
func (q *ExperimentQueue) PopExperiment() *models.Experiment {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Len() == 0 {
		return nil
	}
	item := heap.Pop(q).(*queuedExperiment)
	return item.exp
}

// Size returns the number of queued experiments.
func (q *ExperimentQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Len()
}

// Len implements heap.Interface.
func (q *ExperimentQueue) Len() int { return len(q.items) }

// Less implements heap.Interface; earlier submissions run first.
func (q *ExperimentQueue) Less(i, j int) bool {
	return q.items[i].exp.SubmittedAt.Before(q.items[j].exp.SubmittedAt)
}

// Swap implements heap.Interface.
func (q *ExperimentQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push implements heap.Interface.
func (q *ExperimentQueue) Push(x interface{}) {
	item := x.(*queuedExperiment)
	item.index = len(q.items)
	q.items = append(q.items, item)
}

// Pop implements heap.Interface.
func (q *ExperimentQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	q.items = old[0 : n-1]
	return item
}
