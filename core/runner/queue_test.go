package runner

import (
	"reflect"
	"testing"
	"time"

	"schedbench/core/models"
)

func queuedExp(id string, offset time.Duration) *models.Experiment {
	return &models.Experiment{
		ID:          id,
		Status:      models.ExperimentStatusPending,
		SubmittedAt: time.Unix(1700000000, 0).Add(offset),
	}
}

func TestQueueOrdersBySubmissionTime(t *testing.T) {
	q := NewExperimentQueue()
	q.Enqueue(queuedExp("b", 2*time.Second))
	q.Enqueue(queuedExp("c", 3*time.Second))
	q.Enqueue(queuedExp("a", time.Second))

	var got []string
	for exp := q.PopExperiment(); exp != nil; exp = q.PopExperiment() {
		got = append(got, exp.ID)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pop order = %v, want %v", got, want)
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := NewExperimentQueue()
	if exp := q.PopExperiment(); exp != nil {
		t.Errorf("PopExperiment on empty queue = %v, want nil", exp)
	}
}

func TestQueueSize(t *testing.T) {
	q := NewExperimentQueue()
	if q.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", q.Size())
	}
	q.Enqueue(queuedExp("x", 0))
	q.Enqueue(queuedExp("y", time.Second))
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}
	q.PopExperiment()
	if q.Size() != 1 {
		t.Errorf("Size() after pop = %d, want 1", q.Size())
	}
}
