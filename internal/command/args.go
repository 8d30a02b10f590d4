package command

import (
	"math"
	"strconv"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// maxTTLSeconds is the largest TTL representable as a time.Duration.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// parseInt parses a base-10 integer argument.
func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, domain.ErrNotInteger
	}
	return n, nil
}

// parseTTL parses a non-negative whole number of seconds.
func parseTTL(s string) (time.Duration, error) {
	n, err := parseInt(s)
	if err != nil || n < 0 || n > maxTTLSeconds {
		return 0, domain.ErrNotInteger
	}
	return time.Duration(n) * time.Second, nil
}
