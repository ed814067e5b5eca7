package system

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a point-in-time resource reading for the current process.
type ProcessStats struct {
	RSS         uint64
	CPUPercent  float64
	Threads     int32
	SystemTotal uint64
	SystemUsed  float64
}

func ReadProcessStats() (ProcessStats, error) {
	var st ProcessStats

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return st, fmt.Errorf("open process: %w", err)
	}
	if mi, err := proc.MemoryInfo(); err == nil {
		st.RSS = mi.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if n, err := proc.NumThreads(); err == nil {
		st.Threads = n
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return st, fmt.Errorf("virtual memory: %w", err)
	}
	st.SystemTotal = vm.Total
	st.SystemUsed = vm.UsedPercent
	return st, nil
}

func (s ProcessStats) String() string {
	return fmt.Sprintf("RSS %.1f MiB | CPU %.1f%% | Threads %d | System memory %.1f%% of %.1f GiB",
		float64(s.RSS)/(1<<20), s.CPUPercent, s.Threads, s.SystemUsed, float64(s.SystemTotal)/(1<<30))
}
