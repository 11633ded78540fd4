package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	PprofPrefix     = "/debug/pprof"
	MemoryStatsPath = "/debug/memory"
)

// Registrar adds one route. The gateway passes a registrar that declares
// an authorization requirement, so these routes are never public.
type Registrar func(method, path string, h echo.HandlerFunc)

// RegisterPprofRoutes adds Go pprof profiling endpoints under /debug/pprof/
func RegisterPprofRoutes(register Registrar) {
	register(http.MethodGet, PprofPrefix+"/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	register(http.MethodGet, PprofPrefix+"/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	register(http.MethodGet, PprofPrefix+"/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	register(http.MethodGet, PprofPrefix+"/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	register(http.MethodGet, PprofPrefix+"/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		register(http.MethodGet, PprofPrefix+"/"+name, echo.WrapHandler(pprof.Handler(name)))
	}
	register(http.MethodGet, MemoryStatsPath, MemoryStatsHandler)
}

// MemoryStats returns current memory usage of the application
type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
	Goroutines   int     `json:"goroutines"`
	HeapObjects  uint64  `json:"heap_objects"`
	HeapInUseMB  float64 `json:"heap_in_use_mb"`
	StackInUseMB float64 `json:"stack_in_use_mb"`
	Timestamp    string  `json:"timestamp"`
}

func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      float64(m.Alloc) / 1024 / 1024,
		TotalAllocMB: float64(m.TotalAlloc) / 1024 / 1024,
		SysMB:        float64(m.Sys) / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		HeapObjects:  m.HeapObjects,
		HeapInUseMB:  float64(m.HeapInuse) / 1024 / 1024,
		StackInUseMB: float64(m.StackInuse) / 1024 / 1024,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

func MemoryStatsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, GetMemoryStats())
}
