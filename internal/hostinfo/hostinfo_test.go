package hostinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func syntheticRoots(t *testing.T) (string, string, string) {
	t.Helper()
	root := t.TempDir()
	return filepath.Join(root, "proc"), filepath.Join(root, "sys"), filepath.Join(root, "etc")
}

func TestProbeVirtualHost(t *testing.T) {
	proc, sys, etc := syntheticRoots(t)
	writeFile(t, filepath.Join(proc, "cpuinfo"), `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) Platinum 8259CL CPU @ 2.50GHz
cpu MHz		: 2499.998
flags		: fpu vme de pse tsc msr hypervisor lahf_lm
`)
	writeFile(t, filepath.Join(proc, "stat"), "cpu  1 2 3 4\nbtime 1700000000\nprocesses 42\n")
	writeFile(t, filepath.Join(proc, "xen"), "")
	writeFile(t, filepath.Join(sys, "class/dmi/id/sys_vendor"), "QEMU\n")
	writeFile(t, filepath.Join(sys, "class/dmi/id/product_name"), "Standard PC (Q35 + ICH9, 2009)\n")
	writeFile(t, filepath.Join(etc, "machine-id"), "0123456789abcdef\n")

	info := NewFrom(proc, sys, etc).Probe()
	if info.CPUModel != "Intel(R) Xeon(R) Platinum 8259CL CPU @ 2.50GHz" {
		t.Fatalf("unexpected cpu model %q", info.CPUModel)
	}
	if info.CPUFreqMHz != 2499 {
		t.Fatalf("expected 2499 MHz, got %d", info.CPUFreqMHz)
	}
	if !info.BootTime.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected boot time %v", info.BootTime)
	}
	if info.MachineID != "0123456789abcdef" {
		t.Fatalf("unexpected machine id %q", info.MachineID)
	}
	if !info.Hints.HypervisorFlag || !info.Hints.Xen || info.Hints.OpenVZ {
		t.Fatalf("unexpected hints %+v", info.Hints)
	}
	if info.Hints.KnownVMVendor != "QEMU" {
		t.Fatalf("expected QEMU vendor match, got %q", info.Hints.KnownVMVendor)
	}
	if !info.Hints.Any() {
		t.Fatalf("expected hints to report a hypervisor")
	}
}

func TestProbeBareMetalHost(t *testing.T) {
	proc, sys, etc := syntheticRoots(t)
	writeFile(t, filepath.Join(proc, "cpuinfo"), "model name\t: AMD Ryzen 9 7950X\nflags\t\t: fpu vme sse sse2\n")
	writeFile(t, filepath.Join(sys, "class/dmi/id/sys_vendor"), "ASUSTeK COMPUTER INC.\n")

	info := NewFrom(proc, sys, etc).Probe()
	if info.Hints.Any() {
		t.Fatalf("expected no hypervisor hints, got %+v", info.Hints)
	}
	if info.Hints.DMIVendor != "ASUSTeK COMPUTER INC." {
		t.Fatalf("unexpected vendor %q", info.Hints.DMIVendor)
	}
}

func TestProbeMissingTree(t *testing.T) {
	root := t.TempDir()
	info := NewFrom(filepath.Join(root, "none"), filepath.Join(root, "none"), filepath.Join(root, "none")).Probe()
	if info.CPUModel != "" || info.MachineID != "" || !info.BootTime.IsZero() {
		t.Fatalf("expected empty fields for a missing tree, got %+v", info)
	}
}

func TestReadMemTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	writeFile(t, path, "MemTotal:       16318412 kB\nMemFree:         1000 kB\n")
	if got := readMemTotal(path); got != 16318412*1024 {
		t.Fatalf("unexpected mem total %d", got)
	}
}

func TestMatchVendor(t *testing.T) {
	cases := map[string]string{
		"innotek GmbH":          "innotek",
		"VMware, Inc.":          "VMware",
		"Microsoft Corporation": "Microsoft Corporation",
		"Dell Inc.":             "",
	}
	for vendor, want := range cases {
		if got := matchVendor(vendor); got != want {
			t.Fatalf("%q: expected %q, got %q", vendor, want, got)
		}
	}
}
