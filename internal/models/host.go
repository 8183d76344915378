package models

import "time"

// HostInfo identifies the machine a fingerprint was taken on.
type HostInfo struct {
	Platform      string    `json:"platform" cbor:"1,keyasint"`
	Hostname      string    `json:"hostname" cbor:"2,keyasint"`
	Machine       string    `json:"machine" cbor:"3,keyasint"`
	KernelVersion string    `json:"kernel_version,omitempty" cbor:"4,keyasint,omitempty"`
	CPUCount      int       `json:"cpu_count" cbor:"5,keyasint"`
	CPUModel      string    `json:"cpu_model,omitempty" cbor:"6,keyasint,omitempty"`
	CPUFreqMHz    int64     `json:"cpu_freq_mhz" cbor:"7,keyasint"`
	TotalMemory   uint64    `json:"total_memory" cbor:"8,keyasint"`
	BootTime      time.Time `json:"boot_time,omitempty" cbor:"9,keyasint,omitempty"`
	MachineID     string    `json:"machine_id,omitempty" cbor:"10,keyasint,omitempty"`
	Hints         VirtHints `json:"virtualization_hints" cbor:"11,keyasint"`
}

// VirtHints are direct platform hints of a hypervisor. They are reported
// alongside the statistical verdict and do not feed the classifier.
type VirtHints struct {
	HypervisorFlag bool   `json:"hypervisor_flag" cbor:"1,keyasint"`
	OpenVZ         bool   `json:"openvz" cbor:"2,keyasint"`
	Xen            bool   `json:"xen" cbor:"3,keyasint"`
	DMIVendor      string `json:"dmi_vendor,omitempty" cbor:"4,keyasint,omitempty"`
	DMIProduct     string `json:"dmi_product,omitempty" cbor:"5,keyasint,omitempty"`
	KnownVMVendor  string `json:"known_vm_vendor,omitempty" cbor:"6,keyasint,omitempty"`
}

// Any reports whether any hint points at a hypervisor.
func (h VirtHints) Any() bool {
	return h.HypervisorFlag || h.OpenVZ || h.Xen || h.KnownVMVendor != ""
}
