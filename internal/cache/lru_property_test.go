package cache

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property (§8): a cache never holds more entries than its capacity,
// and every key retrievable after a sequence of sets is the most
// recently set value for that key.
func TestProperty_LRUCapacityAndRecency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("capacity is never exceeded and last write wins", prop.ForAll(
		func(keys []int, capacity int) bool {
			if capacity <= 0 {
				capacity = 1
			}
			c := New(capacity, time.Hour)

			last := make(map[int]int)
			for i, k := range keys {
				c.Set(intKey(k), i)
				last[k] = i
			}

			size, cap2, _, _ := c.Stats()
			if size > cap2 {
				return false
			}

			for k, want := range last {
				if v, ok := c.Get(intKey(k)); ok {
					if v.(int) != want {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func intKey(k int) string {
	const digits = "0123456789"
	if k == 0 {
		return "0"
	}
	neg := k < 0
	if neg {
		k = -k
	}
	buf := make([]byte, 0, 8)
	for k > 0 {
		buf = append([]byte{digits[k%10]}, buf...)
		k /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}
