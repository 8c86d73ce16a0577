package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPartitionerFixed(t *testing.T) {
	p := NewPartitioner(PartitionConfig{}, false, 4, 3, 2)
	p.Observe(time.Second)
	assert.Equal(t, 4, p.Divisions())
	assert.Equal(t, 3, p.RefreshEvery())
	assert.Equal(t, 2, p.BatchSize())
	assert.Equal(t, time.Duration(0), p.FrameGap())
	assert.Equal(t, 0, p.Adjustments())
}

func TestPartitionerAdapts(t *testing.T) {
	p := NewPartitioner(PartitionConfig{MaxDivisions: 3}, true, 0, 1, 1)
	assert.Equal(t, 1, p.Divisions())
	assert.Equal(t, 5, p.RefreshEvery())

	p.Observe(10 * time.Millisecond)
	assert.Equal(t, 1, p.Divisions(), "cannot go below one division")

	p.Observe(80 * time.Millisecond)
	assert.Equal(t, 2, p.Divisions())
	assert.Equal(t, 1, p.RefreshEvery())

	p.Observe(80 * time.Millisecond)
	p.Observe(80 * time.Millisecond)
	assert.Equal(t, 3, p.Divisions(), "capped at the maximum")

	p.Observe(DefaultTargetDuration)
	assert.Equal(t, 3, p.Divisions(), "on target")

	p.Observe(time.Millisecond)
	p.Observe(time.Millisecond)
	assert.Equal(t, 1, p.Divisions())
	assert.Equal(t, 5, p.RefreshEvery())
	assert.Equal(t, 4, p.Adjustments())
}

func TestPartitionerAdjustmentBudget(t *testing.T) {
	p := NewPartitioner(PartitionConfig{Target: 10 * time.Millisecond, MaxAdjustments: 3}, true, 0, 1, 1)
	for i := 0; i < 10; i++ {
		p.Observe(time.Second)
	}
	assert.Equal(t, 4, p.Divisions())
	assert.Equal(t, 3, p.Adjustments())
}

func TestSetLoadProfile(t *testing.T) {
	p := NewPartitioner(PartitionConfig{}, true, 0, 1, 1)

	p.SetLoadProfile(-6)
	assert.Equal(t, 6, p.Divisions())
	assert.Equal(t, 1, p.RefreshEvery())
	assert.Equal(t, 30*time.Millisecond, p.FrameGap())

	p.SetLoadProfile(0.5)
	assert.Equal(t, 1, p.Divisions())
	assert.Equal(t, 5, p.RefreshEvery())
	assert.Equal(t, 16*time.Millisecond, p.FrameGap())

	p.SetLoadProfile(3.4)
	assert.Equal(t, 1, p.Divisions())
	assert.Equal(t, 10, p.RefreshEvery())
	assert.Equal(t, 3, p.BatchSize())
	assert.Equal(t, time.Duration(0), p.FrameGap())

	p.Observe(time.Second)
	assert.Equal(t, 1, p.Divisions(), "a load profile disables adaptation")
}
