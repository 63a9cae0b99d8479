package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/lk2023060901/wirecodec/pkg/log"
)

var (
	cpuNumOnce sync.Once
	cpuNum     int
)

// GetCPUNum 返回当前进程可用的 CPU 数量。
//
// 取 GOMAXPROCS 与物理逻辑核数中较小者，automaxprocs 调整后的配额也会体现在这里。
func GetCPUNum() int {
	cpuNumOnce.Do(func() {
		cpuNum = runtime.GOMAXPROCS(0)
		count, err := cpu.Counts(true)
		if err != nil {
			log.Warn("failed to get cpu counts, fallback to GOMAXPROCS", zap.Error(err))
			return
		}
		if count > 0 && count < cpuNum {
			cpuNum = count
		}
	})
	return cpuNum
}

// GetMemoryCount 返回物理内存总量（字节），获取失败时返回 0。
func GetMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get memory count", zap.Error(err))
		return 0
	}
	return stats.Total
}

// GetFreeMemoryCount 返回当前可用内存（字节）。
func GetFreeMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get free memory count", zap.Error(err))
		return 0
	}
	return stats.Available
}
