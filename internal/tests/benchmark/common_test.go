package benchmark

import (
	"fmt"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
)

// KeyCounts are the keyspace sizes for scale benchmarks.
var KeyCounts = []int{1000, 10000, 100000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000}

// prefillStore fills store with count keys spread over every value kind.
// A quarter of the keys carry a deadline.
func prefillStore(store *memory.Store, count int) {
	for i := 0; i < count; i++ {
		key := "key:" + strconv.Itoa(i)
		switch i % 4 {
		case 0:
			store.Set(key, "value-"+strconv.Itoa(i))
		case 1:
			_, _ = store.RPush(key, "a", "b", "c", strconv.Itoa(i))
		case 2:
			_, _ = store.SAdd(key, "x", "y", strconv.Itoa(i))
		case 3:
			_, _ = store.HSet(key,
				memory.FieldValue{Field: "name", Value: "n" + strconv.Itoa(i)},
				memory.FieldValue{Field: "score", Value: strconv.Itoa(i)})
		}
		if i%4 == 0 {
			store.Expire(key, time.Hour)
		}
	}
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs benchFn once per keyspace size.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
