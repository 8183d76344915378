//go:build linux

package hostinfo

import (
	"golang.org/x/sys/unix"

	"github.com/miradorstack/vmtest/internal/models"
)

// platformInfo fills the fields available from uname(2), sysinfo(2) and the
// scheduler affinity mask.
func platformInfo() models.HostInfo {
	var info models.HostInfo

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		sysname := unix.ByteSliceToString(uts.Sysname[:])
		release := unix.ByteSliceToString(uts.Release[:])
		info.Platform = sysname + "-" + release
		info.KernelVersion = unix.ByteSliceToString(uts.Version[:])
		info.Hostname = unix.ByteSliceToString(uts.Nodename[:])
		info.Machine = unix.ByteSliceToString(uts.Machine[:])
	}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil {
		info.TotalMemory = uint64(si.Totalram) * uint64(si.Unit)
	}

	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		info.CPUCount = set.Count()
	}
	return info
}
