package columnpooler

import (
	"math"
	"math/rand"
	"sort"

	"github.com/htm-project/neural-api/internal/cortical/sdr"
)

func sliceToSDR(bits []bool) (*sdr.SDR, error) {
	active := make([]int, 0)
	for i, b := range bits {
		if b {
			active = append(active, i)
		}
	}
	return sdr.NewSDR(len(bits), active)
}

func mustSDR(s *sdr.SDR, err error) *sdr.SDR {
	if err != nil {
		panic(err)
	}
	return s
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func countTrue(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}

func ceilFloat(f float64) float64 {
	return math.Ceil(f)
}

// sampleN returns up to n distinct elements drawn from pool without
// replacement, order randomized.
func sampleN(rng *rand.Rand, pool []int, n int) []int {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n >= len(pool) {
		out := make([]int, len(pool))
		copy(out, pool)
		return out
	}
	shuffled := make([]int, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

func sortCandidates[T any](items []T, key func(T) (int, int)) {
	sort.SliceStable(items, func(i, j int) bool {
		si, oi := key(items[i])
		sj, oj := key(items[j])
		if si != sj {
			return si > sj
		}
		return oi > oj
	})
}
