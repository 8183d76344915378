package collector

import (
	"fmt"
	"reflect"
	"runtime"
)

// memoryAddresses performs count allocations of increasing size and returns
// the numeric address of each. Every buffer stays live until all addresses
// are captured so the allocator cannot hand the same block back.
func (c *Collector) memoryAddresses(count int) ([]float64, error) {
	base := int64(c.cfg.AllocBaseBytes)
	step := int64(c.cfg.AllocStepBytes)
	total := int64(count)*base + step*int64(count)*int64(count-1)/2
	if total > c.cfg.MaxScratchBytes {
		return nil, fmt.Errorf("%w: %d allocations need %d bytes, budget %d", ErrScratchUnavailable, count, total, c.cfg.MaxScratchBytes)
	}

	held := make([][]byte, 0, count)
	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		size := base + step*int64(i)
		buf, err := scratch[byte](int(size), 1, size)
		if err != nil {
			return nil, err
		}
		buf[0] = byte(i)
		held = append(held, buf)
		out = append(out, float64(reflect.ValueOf(buf).Pointer()))
	}
	runtime.KeepAlive(held)
	return out, nil
}
