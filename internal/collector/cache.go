package collector

// CacheSamples holds the two latency sequences of the cache probe.
type CacheSamples struct {
	Friendly   []float64
	Unfriendly []float64
}

// CacheAccess times trials sequential scans of a pseudo-random buffer, then
// trials strided walks over a shuffled index permutation of the same buffer.
func (c *Collector) CacheAccess(trials int) (CacheSamples, error) {
	var samples CacheSamples
	if trials <= 0 {
		return samples, nil
	}
	n := c.cfg.CacheElements
	budget := c.cfg.MaxScratchBytes

	buf, err := scratch[float64](n, 8, budget)
	if err != nil {
		return samples, err
	}
	indices, err := scratch[int32](n, 4, budget-int64(n)*8)
	if err != nil {
		return samples, err
	}
	for i := range buf {
		buf[i] = c.rng.Float64()
	}

	samples.Friendly = make([]float64, 0, trials)
	for t := 0; t < trials; t++ {
		sum := 0.0
		start := c.clock.Now()
		for i := 0; i < n; i++ {
			sum += buf[i]
		}
		end := c.clock.Now()
		c.floatSink += sum
		samples.Friendly = append(samples.Friendly, float64(end-start))
	}

	for i := range indices {
		indices[i] = int32(i)
	}
	// Fisher–Yates.
	c.rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	stride := c.cfg.CacheStride
	samples.Unfriendly = make([]float64, 0, trials)
	for t := 0; t < trials; t++ {
		sum := 0.0
		start := c.clock.Now()
		for j := 0; j < n; j += stride {
			sum += buf[indices[j]]
		}
		end := c.clock.Now()
		c.floatSink += sum
		samples.Unfriendly = append(samples.Unfriendly, float64(end-start))
	}
	return samples, nil
}
