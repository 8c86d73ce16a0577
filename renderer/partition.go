package renderer

import (
	"math"
	"time"
)

// Partition defaults.
const (
	DefaultTargetDuration = 50 * time.Millisecond
	DefaultMaxDivisions   = 20
	DefaultMaxAdjustments = 100
)

// PartitionConfig tunes the adaptive partitioner.
type PartitionConfig struct {
	// Target is the wall clock budget of one division.
	Target         time.Duration
	MaxDivisions   int
	MaxAdjustments int
}

func (c PartitionConfig) withDefaults() PartitionConfig {
	if c.Target <= 0 {
		c.Target = DefaultTargetDuration
	}
	if c.MaxDivisions < 1 {
		c.MaxDivisions = DefaultMaxDivisions
	}
	if c.MaxAdjustments < 0 {
		c.MaxAdjustments = 0
	} else if c.MaxAdjustments == 0 {
		c.MaxAdjustments = DefaultMaxAdjustments
	}
	return c
}

// Partitioner decides how many row bands a logical frame of an
// accumulating session is split into, how often the result is shown, and
// how long the loop yields between ticks.
type Partitioner struct {
	cfg         PartitionConfig
	auto        bool
	n           int
	refresh     int
	batch       int
	gap         time.Duration
	adjustments int
}

// NewPartitioner returns a partitioner with n fixed divisions, or an
// adaptive one starting at a single division when auto is set.
func NewPartitioner(cfg PartitionConfig, auto bool, n, refreshEvery, batchSize int) *Partitioner {
	p := &Partitioner{cfg: cfg.withDefaults(), auto: auto, n: max(n, 1), refresh: max(refreshEvery, 1), batch: max(batchSize, 1)}
	if auto {
		p.n = 1
		p.couple()
	}
	return p
}

func (p *Partitioner) Divisions() int          { return p.n }
func (p *Partitioner) RefreshEvery() int       { return p.refresh }
func (p *Partitioner) BatchSize() int          { return p.batch }
func (p *Partitioner) FrameGap() time.Duration { return p.gap }
func (p *Partitioner) Adjustments() int        { return p.adjustments }

// Observe feeds the measured duration of one division back to an adaptive
// partitioner.
func (p *Partitioner) Observe(perDivision time.Duration) {
	if !p.auto || p.adjustments >= p.cfg.MaxAdjustments {
		return
	}
	switch {
	case perDivision < p.cfg.Target && p.n > 1:
		p.n--
	case perDivision > p.cfg.Target && p.n < p.cfg.MaxDivisions:
		p.n++
	default:
		return
	}
	p.adjustments++
	p.couple()
}

// couple ties the refresh cadence to the division count: a single
// division is a full frame, so its result is shown less often.
func (p *Partitioner) couple() {
	if p.n == 1 {
		p.refresh = 5
	} else {
		p.refresh = 1
	}
}

// SetLoadProfile replaces the partitioning with a fixed profile. A negative
// load splits frames into -load divisions. A load in [0, 1) throttles a
// single division frame with a gap of up to 30ms. A load of 1 or more
// renders round(load) frames per tick with no gap.
func (p *Partitioner) SetLoadProfile(load float64) {
	p.auto = false
	switch {
	case load < 0:
		p.n = int(-load)
		p.refresh = 1
		p.gap = 30 * time.Millisecond
	case load < 1:
		p.refresh = 5
		p.n = 1
		p.gap = time.Duration(math.Ceil((1-load)*29)+1) * time.Millisecond
	default:
		p.n = 1
		p.refresh = 10
		p.batch = int(math.Round(load))
		p.gap = 0
	}
	p.n = max(p.n, 1)
}
