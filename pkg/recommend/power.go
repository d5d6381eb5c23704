package recommend

import (
	"math"
	"regexp"
	"strconv"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

const (
	DefaultCPUTDP = 65
	DefaultGPUTDP = 150

	// Fixed draw for board, drives and fans, and the margin applied on top.
	baseSystemWatts = 100
	psuHeadroom     = 1.2
)

var (
	tdpRegex     = regexp.MustCompile(`(?i)(\d+)W\s*TDP`)
	wattageRegex = regexp.MustCompile(`(\d+)W`)
)

// ExtractTDP reads "<n>W TDP" from a spec string. It reports false when the
// spec has no such token or the value is zero.
func ExtractTDP(spec string) (int, bool) {
	m := tdpRegex.FindStringSubmatch(spec)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// Wattage parses the first "<n>W" token of a PSU name, 0 if absent.
func Wattage(psu catalog.Component) int {
	m := wattageRegex.FindStringSubmatch(psu.Name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// RequiredWattage is ceil((cpuTDP + gpuTDP + 100) * 1.2).
func RequiredWattage(cpu catalog.Component, gpu *catalog.Component) int {
	cpuTDP, ok := ExtractTDP(cpu.Spec)
	if !ok {
		cpuTDP = DefaultCPUTDP
	}
	gpuTDP := 0
	if gpu != nil {
		if gpuTDP, ok = ExtractTDP(gpu.Spec); !ok {
			gpuTDP = DefaultGPUTDP
		}
	}
	return int(math.Ceil(float64(cpuTDP+gpuTDP+baseSystemWatts) * psuHeadroom))
}
