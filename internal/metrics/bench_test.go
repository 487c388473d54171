package metrics

import "testing"

// BenchmarkCollector_PollTick measures the overhead of recording one
// output scan (atomic increment), the hottest counter in a bootstrap.
func BenchmarkCollector_PollTick(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.PollTick()
	}
}

// BenchmarkCollector_BytesSent measures byte-counter overhead.
func BenchmarkCollector_BytesSent(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.BytesSent(32768)
	}
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New()
	c.HelperLaunched()
	c.NativeSpawned()
	c.BytesSent(1024)
	c.RecordError("test")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}

// BenchmarkCollector_JSON measures JSON export overhead.
func BenchmarkCollector_JSON(b *testing.B) {
	c := New()
	c.NativeSpawned()
	c.BytesSent(1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.JSON()
	}
}

// BenchmarkNilCollector verifies nil-safe no-ops have zero overhead.
func BenchmarkNilCollector(b *testing.B) {
	var c *Collector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.PollTick()
		c.BytesSent(32768)
		c.RecordError("test")
	}
}
