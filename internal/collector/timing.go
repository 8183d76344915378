package collector

func (c *Collector) basicTiming(out []float64, count int) []float64 {
	for i := 0; i < count; i++ {
		start := c.clock.Now()
		r := spin(c.cfg.WorkCycles)
		end := c.clock.Now()
		c.sink.Add(r)
		out = append(out, float64(end-start))
	}
	return out
}

// consecutiveTiming times blocks of back-to-back identical operations and
// records the per-operation mean of each block.
func (c *Collector) consecutiveTiming(out []float64, count int) []float64 {
	block := c.cfg.ConsecutiveBlock
	for i := 0; i < count; i++ {
		var acc int64
		start := c.clock.Now()
		for j := 0; j < block; j++ {
			for k := 0; k < c.cfg.ConsecutiveOps; k++ {
				acc += int64(k)
			}
		}
		end := c.clock.Now()
		c.sink.Add(acc)
		out = append(out, float64(end-start)/float64(block))
	}
	return out
}
