// Package debounce gom chuỗi sự kiện gõ phím liên tiếp thành một lần chạy trễ.
package debounce

import (
	"sync"
	"time"

	"github.com/location-resolver/internal/metrics"
)

// Debouncer giữ tối đa một timer cho mỗi stream. Schedule mới trên cùng stream
// hủy timer cũ trước khi đặt timer mới.
type Debouncer struct {
	mu      sync.Mutex
	timers  map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

// New tạo mới Debouncer
func New() *Debouncer {
	return &Debouncer{timers: make(map[string]*entry)}
}

// Schedule đặt fn chạy sau delay trên stream. fn nhận generation của lần schedule
// để caller so với Generation(stream) khi kết quả trả về muộn.
func (d *Debouncer) Schedule(stream string, delay time.Duration, fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}

	e, ok := d.timers[stream]
	if !ok {
		e = &entry{}
		d.timers[stream] = e
	}
	if e.timer != nil && e.timer.Stop() {
		metrics.DebounceCoalescedTotal.Inc()
	}
	e.gen++
	gen := e.gen

	e.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current, ok := d.timers[stream]
		live := ok && !d.stopped && current.gen == gen
		if live {
			current.timer = nil
		}
		d.mu.Unlock()
		if live {
			fn(gen)
		}
	})
	return gen
}

// Cancel hủy timer đang chờ của stream và tăng generation để
// mọi callback đang chạy dở bị coi là cũ
func (d *Debouncer) Cancel(stream string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.timers[stream]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// Pending stream còn timer chưa chạy
func (d *Debouncer) Pending(stream string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.timers[stream]
	return ok && e.timer != nil
}

// Generation generation hiện tại của stream
func (d *Debouncer) Generation(stream string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.timers[stream]; ok {
		return e.gen
	}
	return 0
}

// Stop hủy mọi timer; sau Stop, Schedule không còn tác dụng
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, e := range d.timers {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.gen++
	}
}
