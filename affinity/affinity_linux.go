//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation on sched_setaffinity(2); pid 0 targets the calling thread.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuSetSize mirrors CPU_SETSIZE from <sched.h>.
const cpuSetSize = 1024

func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	if cpuID < 0 || cpuID >= cpuSetSize {
		return fmt.Errorf("affinity: cpu %d out of range", cpuID)
	}
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}
