package state

import (
	"log"
	"sync"
	"time"
)

// Sampler drives a probe on a fixed interval and feeds the window.
// Callers must Stop the sampler before reading the window: Stop joins the
// sampling goroutine, after which Window contents are stable.
type Sampler struct {
	probe    *Probe
	window   *Window
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewSampler builds a sampler observing the tree under rootPID, with the
// window sized to cover duration at the given interval.
func NewSampler(rootPID int, interval, duration time.Duration) *Sampler {
	return &Sampler{
		probe:    NewProbe(rootPID),
		window:   NewWindow(duration, interval),
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the sampling loop. A second call is a no-op.
func (s *Sampler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop signals the loop and waits for it to exit. Safe to call more than
// once and safe to call concurrently with a finishing run.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.doneChan
}

// Window exposes the sample ring. Read it only after Stop has returned.
func (s *Sampler) Window() *Window { return s.window }

func (s *Sampler) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Prime the CPU tick baseline so the first windowed snapshot carries
	// meaningful percentages.
	if _, err := s.probe.Snapshot(); err != nil {
		log.Printf("Sampler: priming snapshot failed: %v", err)
	}

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			snap, err := s.probe.Snapshot()
			if err != nil {
				// A failed tick is dropped; the window keeps its shape.
				log.Printf("Sampler: snapshot failed: %v", err)
				continue
			}
			s.window.Push(snap)
		}
	}
}
