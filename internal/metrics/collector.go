package metrics

import (
	"runtime"
	"sync"
	"time"

	"media-compressor/internal/logging"

	"github.com/shirou/gopsutil/v4/mem"
)

// Collector periodically samples process and host memory while jobs run.
type Collector struct {
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	MemoryHeapBytes.Set(float64(ms.HeapAlloc))
	Goroutines.Set(float64(runtime.NumGoroutine()))

	vm, err := mem.VirtualMemory()
	if err != nil {
		logging.Debug("host memory unavailable: %v", err)
		return
	}
	HostMemoryAvailableBytes.Set(float64(vm.Available))

	logging.Debug("Metrics collected: heap=%d MiB, host available=%d MiB",
		ms.HeapAlloc>>20, vm.Available>>20)
}
