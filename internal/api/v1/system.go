package api

import (
	"net/http"
	"os"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceInfo is the process and host memory snapshot served by /system/resources.
type ResourceInfo struct {
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	Goroutines  int     `json:"goroutines"`
	NumCPU      int     `json:"num_cpu"`
	GoVersion   string  `json:"go_version"`
	Sessions    int     `json:"sessions"`
}

func (c *Controller) initSystemRoutes() {
	systemGroup := c.Group.Group("/system")
	systemGroup.GET("/resources", c.GetResourceInfo)
}

// GetResourceInfo handles GET /api/v1/system/resources
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	memInfo, err := mem.VirtualMemoryWithContext(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get memory information", http.StatusInternalServerError)
	}

	info := ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryUsage: memInfo.UsedPercent,
		Goroutines:  runtime.NumGoroutine(),
		NumCPU:      runtime.NumCPU(),
		GoVersion:   runtime.Version(),
		Sessions:    c.Sessions.Count(),
	}

	// Process stats are best effort, some platforms restrict them
	if proc, err := process.NewProcessWithContext(ctx.Request().Context(), int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfoWithContext(ctx.Request().Context()); err == nil && procMem != nil {
			info.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
	}

	return ctx.JSON(http.StatusOK, info)
}
