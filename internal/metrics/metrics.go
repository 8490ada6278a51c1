package metrics

import (
	"sync"
	"time"
)

// MetricsCollector provides a centralized way to collect and retrieve metrics
type MetricsCollector struct {
	mutex               sync.RWMutex
	counters            map[string]int64
	gauges              map[string]float64
	operationLatencies  map[string][]time.Duration
	messageBusCounts    map[string]int64
	messageBusLatencies map[string][]time.Duration
	errorCounts         map[string]int64
	startTime           time.Time
	maxHistogramSamples int
}

// Counter metrics
const (
	CounterMatchesScored     = "matches_scored_total"
	CounterProposalsCreated  = "proposals_created_total"
	CounterProposalsAccepted = "proposals_accepted_total"
	CounterProposalsRejected = "proposals_rejected_total"
	CounterProposalsExpired  = "proposals_expired_total"
	CounterAssignments       = "assignments_total"
	CounterAssignmentRaces   = "assignment_conflicts_total"
	CounterCacheHits         = "cache_hits_total"
	CounterCacheMisses       = "cache_misses_total"
	CounterMessagesSent      = "messages_sent_total"
	CounterMessagesReceived  = "messages_received_total"
	CounterErrorsTotal       = "errors_total"
)

// Gauge metrics
const (
	GaugePendingProposals = "pending_proposals"
	GaugePendingMessages  = "pending_messages"
)

// Operation types for latency metrics
const (
	OperationTypeFindMatches = "find_matches"
	OperationTypePropose     = "propose"
	OperationTypeRespond     = "respond"
	OperationTypeAssign      = "assign"
)

// Message bus operations
const (
	MessageBusOperationSend     = "send"
	MessageBusOperationReceive  = "receive"
	MessageBusOperationComplete = "complete"
	MessageBusOperationReject   = "reject"
)

// Error types
const (
	ErrorTypeValidation = "validation"
	ErrorTypeConflict   = "conflict"
	ErrorTypeDatabase   = "database"
	ErrorTypeMessageBus = "message_bus"
	ErrorTypeInternal   = "internal"
)

var (
	collector     *MetricsCollector
	collectorOnce sync.Once
)

// GetMetricsCollector returns the shared collector instance
func GetMetricsCollector() *MetricsCollector {
	collectorOnce.Do(func() {
		collector = NewMetricsCollector()
	})
	return collector
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:            make(map[string]int64),
		gauges:              make(map[string]float64),
		operationLatencies:  make(map[string][]time.Duration),
		messageBusCounts:    make(map[string]int64),
		messageBusLatencies: make(map[string][]time.Duration),
		errorCounts:         make(map[string]int64),
		startTime:           time.Now(),
		maxHistogramSamples: 1000,
	}
}

// IncrementCounter increments a named counter
func (c *MetricsCollector) IncrementCounter(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.counters[name]++
}

// SetGauge sets a named gauge value
func (c *MetricsCollector) SetGauge(name string, value float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.gauges[name] = value
}

// RecordOperation records a latency sample for an operation type
func (c *MetricsCollector) RecordOperation(operationType string, duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	samples := c.operationLatencies[operationType]
	if len(samples) >= c.maxHistogramSamples {
		samples = samples[1:]
	}
	c.operationLatencies[operationType] = append(samples, duration)
}

// RecordMessageBusOperation records a message bus operation
func (c *MetricsCollector) RecordMessageBusOperation(operation string, success bool, duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.messageBusCounts[operation]++
	if !success {
		c.errorCounts[ErrorTypeMessageBus]++
	}

	samples := c.messageBusLatencies[operation]
	if len(samples) >= c.maxHistogramSamples {
		samples = samples[1:]
	}
	c.messageBusLatencies[operation] = append(samples, duration)
}

// RecordError records an error of the given type
func (c *MetricsCollector) RecordError(errorType string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errorCounts[errorType]++
	c.counters[CounterErrorsTotal]++
}

// SetPendingMessages updates the pending messages gauge
func (c *MetricsCollector) SetPendingMessages(count int) {
	c.SetGauge(GaugePendingMessages, float64(count))
}

// Snapshot returns a copy of all current metric values
func (c *MetricsCollector) Snapshot() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	counters := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(c.gauges))
	for k, v := range c.gauges {
		gauges[k] = v
	}
	errors := make(map[string]int64, len(c.errorCounts))
	for k, v := range c.errorCounts {
		errors[k] = v
	}
	latencies := make(map[string]map[string]interface{})
	for op, samples := range c.operationLatencies {
		latencies[op] = summarize(samples)
	}
	messageBus := make(map[string]int64, len(c.messageBusCounts))
	for k, v := range c.messageBusCounts {
		messageBus[k] = v
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.startTime).Seconds(),
		"counters":       counters,
		"gauges":         gauges,
		"errors":         errors,
		"latencies":      latencies,
		"message_bus":    messageBus,
	}
}

func summarize(samples []time.Duration) map[string]interface{} {
	if len(samples) == 0 {
		return map[string]interface{}{"count": 0}
	}
	var total time.Duration
	min, max := samples[0], samples[0]
	for _, s := range samples {
		total += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return map[string]interface{}{
		"count":   len(samples),
		"min_ms":  float64(min.Microseconds()) / 1000,
		"max_ms":  float64(max.Microseconds()) / 1000,
		"mean_ms": float64(total.Microseconds()) / float64(len(samples)) / 1000,
	}
}
