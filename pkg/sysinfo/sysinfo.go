// Package sysinfo collects a snapshot of the host the tests ran on,
// for inclusion in run summaries and reports.
package sysinfo

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Snapshot describes the host at collection time.
type Snapshot struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	Architecture    string `json:"architecture"`
	CPUModel        string `json:"cpu_model,omitempty"`
	CPUCores        int    `json:"cpu_cores"`
	MemoryTotal     uint64 `json:"memory_total_bytes,omitempty"`
	GoVersion       string `json:"go_version"`
}

// Collect gathers a host snapshot. Individual probe failures are
// logged and leave the corresponding fields empty rather than failing
// the run.
func Collect(ctx context.Context, log logrus.FieldLogger) Snapshot {
	snap := Snapshot{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUCores:     runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		log.WithError(err).Debug("Failed to collect host info")
	} else {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		snap.PlatformVersion = info.PlatformVersion
		snap.KernelVersion = info.KernelVersion
	}

	if cpus, err := cpu.InfoWithContext(ctx); err != nil {
		log.WithError(err).Debug("Failed to collect CPU info")
	} else if len(cpus) > 0 {
		snap.CPUModel = cpus[0].ModelName
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.WithError(err).Debug("Failed to collect memory info")
	} else {
		snap.MemoryTotal = vm.Total
	}

	return snap
}
