package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/spiffcs/stalebot/internal/log"
)

// Profiler writes CPU, heap and execution trace profiles of a run. Empty
// paths disable the corresponding profile.
type Profiler struct {
	cpuPath   string
	memPath   string
	tracePath string

	// stops run in reverse order of Start
	stops []func()
}

// NewProfiler creates a profiler for the given output paths.
func NewProfiler(cpuPath, memPath, tracePath string) *Profiler {
	return &Profiler{
		cpuPath:   cpuPath,
		memPath:   memPath,
		tracePath: tracePath,
	}
}

// Start begins CPU profiling and execution tracing. On error anything
// already started is stopped again.
func (p *Profiler) Start() error {
	if p.cpuPath != "" {
		if err := p.startWith(p.cpuPath, "CPU profile", pprof.StartCPUProfile, pprof.StopCPUProfile); err != nil {
			return err
		}
	}
	if p.tracePath != "" {
		if err := p.startWith(p.tracePath, "trace", trace.Start, trace.Stop); err != nil {
			p.Stop()
			return err
		}
	}
	return nil
}

func (p *Profiler) startWith(path, what string, start func(io.Writer) error, stop func()) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", what, err)
	}
	if err := start(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not start %s: %w", what, err)
	}
	p.stops = append(p.stops, func() {
		stop()
		if err := f.Close(); err != nil {
			log.Warn("could not close profile", "kind", what, "path", path, "error", err)
		}
	})
	return nil
}

// Stop ends all profiling and writes the heap profile if configured.
func (p *Profiler) Stop() {
	for i := len(p.stops) - 1; i >= 0; i-- {
		p.stops[i]()
	}
	p.stops = nil

	if p.memPath == "" {
		return
	}
	f, err := os.Create(p.memPath)
	if err != nil {
		log.Warn("could not create memory profile", "path", p.memPath, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Warn("could not write memory profile", "path", p.memPath, "error", err)
	}
}
