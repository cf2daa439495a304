package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets num out of every den events through. A zero ratio
// lets everything through.
type ratioSampler struct {
	num, den atomic.Int64
	seen     atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.num.Store(int64(min(num, den)))
	s.den.Store(int64(den))
	s.seen.Store(0)
}

func (s *ratioSampler) Allow() bool {
	den := s.den.Load()
	if den <= 0 {
		return true
	}
	i := (s.seen.Add(1) - 1) % uint64(den)
	return int64(i) < s.num.Load()
}

// parseRatioSpec accepts "n/d" or "d" (meaning 1/d). Anything unparsable,
// and any non-positive "d", yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if n, d, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 == nil && err2 == nil {
			return num, den
		}
		return 0, 0
	}
	if den, err := strconv.Atoi(spec); err == nil && den > 0 {
		return 1, den
	}
	return 0, 0
}
