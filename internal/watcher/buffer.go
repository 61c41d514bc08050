package watcher

import (
	"sync"

	"github.com/selivandex/regime-watch/pkg/models"
)

// Buffer is a bounded rolling price series, oldest first. Pushed and polled
// updates both land here; the classification tick reads a copy.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	points   []models.PricePoint
}

// NewBuffer creates a buffer holding at most capacity points
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		points:   make([]models.PricePoint, 0, capacity),
	}
}

// Append adds a point, evicting the oldest when full. Out-of-order points
// (older than the current tail) are dropped.
func (b *Buffer) Append(p models.PricePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.points); n > 0 && p.Timestamp.Before(b.points[n-1].Timestamp) {
		return
	}

	if len(b.points) == b.capacity {
		copy(b.points, b.points[1:])
		b.points = b.points[:b.capacity-1]
	}
	b.points = append(b.points, p)
}

// Load replaces the contents with the given series, truncating to capacity
// from the newest end
func (b *Buffer) Load(points []models.PricePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(points) > b.capacity {
		points = points[len(points)-b.capacity:]
	}
	b.points = append(b.points[:0], points...)
}

// Len returns the number of buffered points
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.points)
}

// Prices returns a copy of the buffered prices, oldest first
func (b *Buffer) Prices() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	prices := make([]float64, len(b.points))
	for i, p := range b.points {
		prices[i] = p.Price
	}
	return prices
}
