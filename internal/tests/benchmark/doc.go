// Package benchmark holds cross-package performance benchmarks for the
// keyspace, snapshot persistence and snapshot encryption.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run one family at larger scale:
//
//	go test -bench=BenchmarkExecutor -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
