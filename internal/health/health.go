// Package health reports process and dependency health for the
// GET /drone-ops/health dashboard endpoint. It never gates other routes:
// a degraded or failing dependency is reported, not enforced.
package health

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/skywatch/drone-ops/internal/cache"
	"github.com/skywatch/drone-ops/internal/store"
)

// ProcessHealth is runtime/process-level resource usage.
type ProcessHealth struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryMB      float64 `json:"memory_mb"`
}

// DependencyHealth is a single collaborator's reachability.
type DependencyHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Snapshot is the full GET /drone-ops/health body.
type Snapshot struct {
	Process  ProcessHealth    `json:"process"`
	Database DependencyHealth `json:"database"`
	Cache    DependencyHealth `json:"cache"`
}

// Collector gathers a health snapshot on demand.
type Collector struct {
	store     *store.Store
	cache     *cache.Cache
	startTime time.Time
}

// NewCollector constructs a Collector. startTime should be the process's
// own start time, captured once at boot.
func NewCollector(st *store.Store, ch *cache.Cache, startTime time.Time) *Collector {
	return &Collector{store: st, cache: ch, startTime: startTime}
}

// Collect gathers process and dependency health. Dependency failures are
// reported in the snapshot, never returned as an error.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	return Snapshot{
		Process:  c.collectProcess(),
		Database: c.collectDatabase(ctx),
		Cache:    c.collectCache(ctx),
	}
}

func (c *Collector) collectProcess() ProcessHealth {
	health := ProcessHealth{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return health
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		health.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		health.MemoryMB = float64(mem.RSS) / (1024 * 1024)
	}
	if health.CPUPercent > 90 {
		health.Status = "degraded"
	}
	return health
}

func (c *Collector) collectDatabase(ctx context.Context) DependencyHealth {
	if err := c.store.Ping(ctx); err != nil {
		return DependencyHealth{Status: "error", Error: err.Error()}
	}
	return DependencyHealth{Status: "healthy"}
}

func (c *Collector) collectCache(ctx context.Context) DependencyHealth {
	if err := c.cache.Ping(ctx); err != nil {
		return DependencyHealth{Status: "error", Error: err.Error()}
	}
	return DependencyHealth{Status: "healthy"}
}
