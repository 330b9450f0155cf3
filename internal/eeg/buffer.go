package eeg

import "sync"

// RollingBuffer хранит скользящее окно нормализованных точек ("видимый
// график"). Емкость фиксирована: при переполнении старые точки вытесняются
// с головы (FIFO). Буфер принадлежит активной сессии мониторинга и
// сбрасывается при смене пациента
type RollingBuffer struct {
	mu       sync.RWMutex
	points   []SamplePoint
	capacity int
}

// NewRollingBuffer создает буфер с заданной емкостью
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RollingBuffer{
		points:   make([]SamplePoint, 0, capacity),
		capacity: capacity,
	}
}

// Append добавляет точки в хвост и вытесняет лишние с головы.
// Порядок точек не меняется; пустая пачка - no-op
func (b *RollingBuffer) Append(points ...SamplePoint) {
	if len(points) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.points = append(b.points, points...)
	if overflow := len(b.points) - b.capacity; overflow > 0 {
		b.points = append(b.points[:0], b.points[overflow:]...)
	}
}

// Windowed возвращает непрерывный срез [offset, offset+size), обрезанный
// по границам буфера. Никогда не паникует: при выходе за границы
// возвращает меньше size элементов или пустой срез
func (b *RollingBuffer) Windowed(offset, size int) []SamplePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if size < 0 {
		size = 0
	}
	if offset >= len(b.points) {
		return []SamplePoint{}
	}

	end := offset + size
	if end > len(b.points) {
		end = len(b.points)
	}

	window := make([]SamplePoint, end-offset)
	copy(window, b.points[offset:end])
	return window
}

// Snapshot возвращает копию всего содержимого буфера
func (b *RollingBuffer) Snapshot() []SamplePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make([]SamplePoint, len(b.points))
	copy(snapshot, b.points)
	return snapshot
}

// Len возвращает текущую длину буфера
func (b *RollingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.points)
}

// Capacity возвращает емкость буфера
func (b *RollingBuffer) Capacity() int {
	return b.capacity
}

// Reset полностью очищает буфер. Вызывается при смене пациента
// и при явной перезагрузке данных
func (b *RollingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = b.points[:0]
}
