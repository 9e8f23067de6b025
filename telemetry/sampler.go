package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/novahq/nova/model"
)

// DefaultSampleInterval is the default period between samples.
const DefaultSampleInterval = 30 * time.Second

// gpuProbeTimeout bounds one nvidia-smi invocation so a wedged probe cannot
// pile up goroutines across sample cycles.
const gpuProbeTimeout = 10 * time.Second

// Sampler periodically measures CPU/memory/GPU load and caches the most
// recent TelemetrySnapshot. CPU and memory are read synchronously on the
// sampling timer; the GPU probe runs on its own goroutine so a slow or absent
// GPU never stalls sampling.
type Sampler struct {
	probes   SystemProbes
	interval time.Duration

	mu      sync.RWMutex
	latest  *model.TelemetrySnapshot
	stop    chan struct{}
	running bool
}

// NewSampler creates a sampler. A non-positive interval falls back to
// DefaultSampleInterval.
func NewSampler(probes SystemProbes, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{probes: probes, interval: interval}
}

// Start takes an immediate sample and arms the recurring timer. Calling Start
// on a running sampler is a no-op (guards against double-arming).
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.sample()
	go s.loop(stop)
}

// Stop cancels the sampling timer. Snapshot keeps returning the last value.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	s.running = false
}

// Snapshot returns the last completed snapshot, or nil before the first
// sample has finished.
func (s *Sampler) Snapshot() *model.TelemetrySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	snap := *s.latest
	return &snap
}

func (s *Sampler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample reads CPU and memory synchronously, then finishes the snapshot on a
// separate goroutine once the GPU probe resolves.
func (s *Sampler) sample() {
	cpu, err := s.probes.CPULoad()
	if err != nil {
		log.Printf("nova: cpu probe: %v", err)
	}
	mem, err := s.probes.MemoryLoad()
	if err != nil {
		log.Printf("nova: memory probe: %v", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), gpuProbeTimeout)
		defer cancel()

		var gpu *float64
		if v, ok := s.probes.GPULoad(ctx); ok {
			gpu = &v
		}

		status, alerts := DeriveStatus(cpu, mem, gpu)
		snap := model.TelemetrySnapshot{
			Status:       status,
			CPULoad:      cpu,
			MemoryLoad:   mem,
			GPULoad:      gpu,
			ActiveAlerts: alerts,
			LastUpdated:  time.Now(),
		}

		s.mu.Lock()
		s.latest = &snap
		s.mu.Unlock()
	}()
}
