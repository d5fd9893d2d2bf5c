package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
)

// Profiler tracks frame rate, renderer counters and memory statistics.
// Logs one record per update interval.
type Profiler struct {
	logger         *slog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and records go to the renderer logger.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetLogger sets the logger stats records are written to. Nil restores the renderer logger.
func (p *Profiler) SetLogger(l *slog.Logger) {
	p.logger = l
}

// SetInterval sets how often stats are logged. Non-positive values are ignored.
//
// Parameters:
//   - d: the interval between stats records
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Tick should be called once per rendered frame with the renderer counters.
// Logs statistics when the update interval has elapsed: FPS, the fence value and
// frame index, device losses, resizes, heap usage, allocation rate, GC count and pauses.
//
// Parameters:
//   - stats: the renderer counters after the frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.Stats) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc grows forever and tracks churn, Sys is the process footprint.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	l := p.logger
	if l == nil {
		l = renderer.Logger()
	}
	l.Info("[Profiler]",
		slog.Float64("fps", fps),
		slog.Uint64("frames", stats.Frames),
		slog.Uint64("fence", stats.FenceValue),
		slog.Int("frameIndex", stats.FrameIndex),
		slog.Uint64("deviceLosses", stats.DeviceLosses),
		slog.Uint64("resizes", stats.Resizes),
		slog.Bool("software", stats.SoftwareFallback),
		slog.String("featureLevel", stats.FeatureLevel.String()),
		slog.Float64("heapMB", allocMB),
		slog.Float64("allocRateMBs", allocRateMB),
		slog.Any("gc", []uint64{uint64(gcCount), lastPauseUs, maxPauseUs}),
		slog.Float64("sysMB", sysMB),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
