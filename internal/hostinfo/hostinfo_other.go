//go:build !linux

package hostinfo

import (
	"runtime"

	"github.com/miradorstack/vmtest/internal/models"
)

func platformInfo() models.HostInfo {
	return models.HostInfo{
		Platform: runtime.GOOS,
		Machine:  runtime.GOARCH,
		CPUCount: runtime.NumCPU(),
	}
}
