package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler admits n out of every d events. A zero ratio admits everything.
type sampler struct {
	ratio atomic.Uint64 // n<<32 | d
	seen  atomic.Uint64
}

func (s *sampler) set(n, d int) {
	if n <= 0 || d <= 0 {
		s.ratio.Store(0)
		return
	}
	n = min(n, d)
	s.ratio.Store(uint64(n)<<32 | uint64(uint32(d)))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	n, d := r>>32, r&0xffffffff
	return (s.seen.Add(1)-1)%d < n
}

// parseRatio reads "n/d" or "d" (meaning 1/d). Unparsable or non-positive
// input yields 0, 0.
func parseRatio(s string) (int, int) {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	if !found {
		num, den = "1", s
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0
	}
	return n, d
}
