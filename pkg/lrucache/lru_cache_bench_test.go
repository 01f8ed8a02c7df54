package lrucache

import (
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkCache_SequentialGet(b *testing.B) {
	cache := New[int, string](1000)
	for i := 0; i < 1000; i++ {
		cache.Put(i, fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Get(i % 1000)
	}
}

func BenchmarkCache_PutWithEviction(b *testing.B) {
	cache := New[int, string](1000)
	keys := make([]int, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = rand.Intn(10000)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Put(keys[i], "value")
	}
}
