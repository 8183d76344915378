// Package hostinfo identifies the machine being fingerprinted and collects
// direct virtualization hints from procfs, sysfs and DMI.
//
// Probing never fails: unreadable sources leave the corresponding fields
// empty. A container without DMI or a VM without /proc/cpuinfo flags is
// still a valid host.
package hostinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
)

// knownVMVendors are DMI vendor or product substrings of common hypervisors.
var knownVMVendors = []string{
	"VMware",
	"VirtualBox",
	"innotek",
	"QEMU",
	"KVM",
	"Xen",
	"Microsoft Corporation",
	"Parallels",
	"Amazon EC2",
	"Google Compute Engine",
	"Bochs",
}

// Prober reads host identity from a procfs/sysfs/etc tree.
type Prober struct {
	procRoot string
	sysRoot  string
	etcRoot  string
}

// New returns a Prober for the live system.
func New() *Prober {
	return NewFrom("/proc", "/sys", "/etc")
}

// NewFrom returns a Prober reading from the given roots, so tests can point
// it at a synthetic tree.
func NewFrom(procRoot, sysRoot, etcRoot string) *Prober {
	return &Prober{procRoot: procRoot, sysRoot: sysRoot, etcRoot: etcRoot}
}

// Probe collects the host description.
func (p *Prober) Probe() models.HostInfo {
	info := platformInfo()
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}

	cpuinfo := filepath.Join(p.procRoot, "cpuinfo")
	info.CPUModel = readCPUField(cpuinfo, "model name")
	if mhz := readCPUField(cpuinfo, "cpu MHz"); mhz != "" {
		if v, err := strconv.ParseFloat(mhz, 64); err == nil {
			info.CPUFreqMHz = int64(v)
		}
	}
	if info.TotalMemory == 0 {
		info.TotalMemory = readMemTotal(filepath.Join(p.procRoot, "meminfo"))
	}
	info.BootTime = readBootTime(filepath.Join(p.procRoot, "stat"))
	info.MachineID = readTrimmed(filepath.Join(p.etcRoot, "machine-id"))
	info.Hints = p.hints(cpuinfo)
	return info
}

func (p *Prober) hints(cpuinfo string) models.VirtHints {
	hints := models.VirtHints{
		HypervisorFlag: hasCPUFlag(cpuinfo, "hypervisor"),
		OpenVZ:         exists(filepath.Join(p.procRoot, "vz")),
		Xen:            exists(filepath.Join(p.procRoot, "xen")),
		DMIVendor:      readTrimmed(filepath.Join(p.sysRoot, "class/dmi/id/sys_vendor")),
		DMIProduct:     readTrimmed(filepath.Join(p.sysRoot, "class/dmi/id/product_name")),
	}
	hints.KnownVMVendor = matchVendor(hints.DMIVendor, hints.DMIProduct)
	return hints
}

func matchVendor(fields ...string) string {
	for _, field := range fields {
		if field == "" {
			continue
		}
		lower := strings.ToLower(field)
		for _, vendor := range knownVMVendors {
			if strings.Contains(lower, strings.ToLower(vendor)) {
				return vendor
			}
		}
	}
	return ""
}

// readCPUField returns the value of the first "key : value" line in
// /proc/cpuinfo whose key matches.
func readCPUField(path, key string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(name) == key {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func hasCPUFlag(path, flag string) bool {
	flags := readCPUField(path, "flags")
	for _, f := range strings.Fields(flags) {
		if f == flag {
			return true
		}
	}
	return false
}

// readMemTotal parses MemTotal from /proc/meminfo, in bytes.
func readMemTotal(path string) uint64 {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return 0
			}
			return kb * 1024
		}
	}
	return 0
}

// readBootTime parses the btime line of /proc/stat.
func readBootTime(path string) time.Time {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "btime" {
			secs, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return time.Time{}
			}
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Time{}
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
