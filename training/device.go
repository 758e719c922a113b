package training

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// DeviceInfo describes the compute device selected for the process
// lifetime. Training runs on the CPU; the report captures what the hardware
// offers and how many data-loading workers to default to.
type DeviceInfo struct {
	Name     string
	Threads  int
	Features []string
}

// DetectDevice inspects the host CPU once at startup.
func DetectDevice() DeviceInfo {
	info := DeviceInfo{
		Name:    cpuid.CPU.BrandName,
		Threads: cpuid.CPU.LogicalCores,
	}
	if info.Name == "" {
		info.Name = runtime.GOARCH
	}
	if info.Threads <= 0 {
		info.Threads = runtime.NumCPU()
	}

	simd := []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX512F, "AVX512"},
		{cpuid.AVX2, "AVX2"},
		{cpuid.AVX, "AVX"},
		{cpuid.SSE4, "SSE4"},
		{cpuid.ASIMD, "NEON"},
	}
	for _, f := range simd {
		if cpuid.CPU.Supports(f.id) {
			info.Features = append(info.Features, f.name)
		}
	}

	return info
}

// String renders a one-line device report for startup logging.
func (d DeviceInfo) String() string {
	if len(d.Features) == 0 {
		return fmt.Sprintf("CPU: %s (%d threads)", d.Name, d.Threads)
	}
	return fmt.Sprintf("CPU: %s (%d threads, %s)", d.Name, d.Threads, strings.Join(d.Features, "/"))
}
