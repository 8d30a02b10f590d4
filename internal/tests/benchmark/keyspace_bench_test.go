package benchmark

import (
	"context"
	"strconv"
	"testing"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

func newExecutor(b *testing.B) *command.Executor {
	b.Helper()
	eng, err := storage.New(storage.Config{Logger: logger.Discard()}, storage.NopPersister{})
	if err != nil {
		b.Fatalf("storage.New: %v", err)
	}
	broker := pubsub.NewBroker(pubsub.Config{Logger: logger.Discard()})
	b.Cleanup(func() {
		broker.Close()
		_ = eng.Close()
	})
	return command.New(command.Config{Logger: logger.Discard()}, eng, broker)
}

// BenchmarkExecutorSetGet measures one SET and one GET through the
// dispatcher, including arity checks and the engine lock.
func BenchmarkExecutorSetGet(b *testing.B) {
	x := newExecutor(b)
	sess := command.NewLocalSession()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := "k" + strconv.Itoa(i%1024)
		if r := x.Execute(ctx, sess, []string{"SET", key, "v"}); r.IsError() {
			b.Fatalf("SET: %s", r.String())
		}
		if r := x.Execute(ctx, sess, []string{"GET", key}); r.IsError() {
			b.Fatalf("GET: %s", r.String())
		}
	}
}

// BenchmarkExecutorParallel measures contention on the single engine lock.
func BenchmarkExecutorParallel(b *testing.B) {
	x := newExecutor(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		sess := command.NewLocalSession()
		i := 0
		for pb.Next() {
			key := "k" + strconv.Itoa(i%256)
			if i%4 == 0 {
				x.Execute(ctx, sess, []string{"INCR", key})
			} else {
				x.Execute(ctx, sess, []string{"GET", key})
			}
			i++
		}
	})
}

// BenchmarkExecutorListPush measures list growth at the head and tail.
func BenchmarkExecutorListPush(b *testing.B) {
	x := newExecutor(b)
	sess := command.NewLocalSession()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := "RPUSH"
		if i%2 == 0 {
			cmd = "LPUSH"
		}
		x.Execute(ctx, sess, []string{cmd, "list:" + strconv.Itoa(i%64), "item"})
	}
}

// BenchmarkStoreSweep measures an active expiry pass over a keyspace with
// no expired keys, the common case for the sweeper.
func BenchmarkStoreSweep(b *testing.B) {
	runWithKeyCounts(b, KeyCounts, func(b *testing.B, count int) {
		store := memory.New()
		prefillStore(store, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			store.SweepExpired()
		}
	})
}

// BenchmarkStoreDump measures the deep copy taken for every save.
func BenchmarkStoreDump(b *testing.B) {
	runWithKeyCounts(b, KeyCounts, func(b *testing.B, count int) {
		store := memory.New()
		prefillStore(store, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = store.Dump()
		}
		b.StopTimer()
		reportMemory(b, "mem")
	})
}
