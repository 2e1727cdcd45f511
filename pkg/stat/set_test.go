// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := newSet()
	v0 := set.New("v0", "desc0")
	v0.Add(3)
	v0.Add(-1)
	assert.Equal(t, 2, v0.Val())

	queue := []int{1, 2, 3}
	set.New("v1", "desc1", Console, func() int { return len(queue) })
	set.New("v2", "desc2", Rate{}, Console)

	ui := set.Collect(Console)
	assert.Len(t, ui, 2)
	assert.Equal(t, "v1", ui[0].Name)
	assert.Equal(t, 3, ui[0].V)
	assert.Equal(t, "3", ui[0].Value)
	assert.Equal(t, "v2", ui[1].Name)
	assert.Len(t, set.Collect(All), 3)

	assert.Panics(t, func() { set.New("v3", "desc3", 42) })
	assert.Panics(t, func() { set.vals["v1"].Add(1) })
}

func TestDistribution(t *testing.T) {
	set := newSet()
	v := set.New("dist", "desc", Distribution{})
	assert.Equal(t, 0, v.Val())
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Add(10)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, v.Val())
	assert.Equal(t, 10, v.Quantile(0.9))
	assert.Equal(t, "10 (p90 10)", v.fmt(v.Val(), time.Second))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "100 (10/sec)", formatRate(100, 10*time.Second))
	assert.Equal(t, "10 (60/min)", formatRate(10, 10*time.Second))
	assert.Equal(t, "1 (360/hour)", formatRate(1, 10*time.Second))
}
