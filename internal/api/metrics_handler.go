package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"example.com/freightlink/services/marketplace/internal/metrics"
)

// MetricsHandler reports the in-process operational counters
func MetricsHandler(c *gin.Context) {
	collector := metrics.GetMetricsCollector()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metricData := collector.Snapshot()
	metricData["runtime"] = map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc_bytes":       memStats.Alloc,
			"total_alloc_bytes": memStats.TotalAlloc,
			"sys_bytes":         memStats.Sys,
			"heap_objects":      memStats.HeapObjects,
			"gc_cycles":         memStats.NumGC,
		},
	}

	c.JSON(http.StatusOK, metricData)
}

// HealthHandler reports service liveness
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
