package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a snapshot of host and process health.
type SystemStats struct {
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
	LiveClients   int     `json:"live_clients"`
}

// ClientCounter reports connected live feed clients.
type ClientCounter interface {
	ClientCount() int
}

// SystemMonitor collects host statistics.
type SystemMonitor struct {
	clients        ClientCounter
	samplingWindow time.Duration
}

// NewSystemMonitor creates a new SystemMonitor. clients may be nil.
func NewSystemMonitor(clients ClientCounter) *SystemMonitor {
	return &SystemMonitor{clients: clients, samplingWindow: 200 * time.Millisecond}
}

// Collect samples host uptime, CPU and memory usage.
func (m *SystemMonitor) Collect(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("failed to read host uptime: %w", err)
	}
	stats.UptimeSeconds = uptime

	percents, err := cpu.PercentWithContext(ctx, m.samplingWindow, false)
	if err != nil {
		return SystemStats{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("failed to read memory usage: %w", err)
	}
	stats.MemoryUsed = vm.Used
	stats.MemoryTotal = vm.Total
	stats.MemoryPercent = vm.UsedPercent

	if m.clients != nil {
		stats.LiveClients = m.clients.ClientCount()
	}
	return stats, nil
}
