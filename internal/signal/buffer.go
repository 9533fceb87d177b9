package signal

import (
	"sort"
	"time"
)

// Buffer assembles samples for a single session into fixed-duration windows.
// Window boundaries are derived from sample timestamps relative to the
// session origin, so identical input always produces identical windows.
//
// Buffer is not safe for concurrent use; each session owns exactly one and
// feeds it from its pipeline goroutine.
type Buffer struct {
	windowMs int64
	originTs int64
	anchored bool

	curStart int64
	current  []Sample
	dropped  int64
	emitted  int64
}

// NewBuffer creates a windowing buffer anchored at the session start
// timestamp (milliseconds). A non-positive origin defers anchoring to the
// first ingested sample, so devices with relative or unsynchronized clocks
// still land their first sample in window 0.
func NewBuffer(window time.Duration, originTs int64) *Buffer {
	b := &Buffer{windowMs: window.Milliseconds()}
	if originTs > 0 {
		b.anchor(originTs)
	}
	return b
}

func (b *Buffer) anchor(ts int64) {
	b.originTs = ts
	b.curStart = ts
	b.anchored = true
}

// Add ingests one sample and returns any windows it closed. Samples whose
// timestamp precedes the current window start are dropped; Add reports the
// drop so the caller can log it. Multiple windows can close at once when the
// incoming timestamp skips ahead.
func (b *Buffer) Add(s Sample) (closed []Window, droppedLate bool) {
	if !b.anchored {
		b.anchor(s.TimestampMs)
	}
	if s.TimestampMs < b.curStart {
		b.dropped++
		return nil, true
	}

	for s.TimestampMs >= b.curStart+b.windowMs {
		if w, ok := b.closeCurrent(b.curStart + b.windowMs); ok {
			closed = append(closed, w)
		}
		b.curStart += b.windowMs
	}

	b.current = append(b.current, s)
	return closed, false
}

// Drain closes the in-progress window, if any samples accumulated, and
// returns it. The drained window may be truncated: its end is the last
// sample's timestamp rather than the full window boundary.
func (b *Buffer) Drain() (Window, bool) {
	if len(b.current) == 0 {
		return Window{}, false
	}
	end := b.current[len(b.current)-1].TimestampMs
	for _, s := range b.current {
		if s.TimestampMs > end {
			end = s.TimestampMs
		}
	}
	w, ok := b.closeCurrent(end)
	b.curStart += b.windowMs
	return w, ok
}

// Dropped returns the count of late samples discarded so far.
func (b *Buffer) Dropped() int64 {
	return b.dropped
}

// Emitted returns the count of windows closed so far.
func (b *Buffer) Emitted() int64 {
	return b.emitted
}

func (b *Buffer) closeCurrent(endTs int64) (Window, bool) {
	if len(b.current) == 0 {
		return Window{}, false
	}
	samples := b.current
	b.current = nil

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].TimestampMs != samples[j].TimestampMs {
			return samples[i].TimestampMs < samples[j].TimestampMs
		}
		return samples[i].SequenceIndex < samples[j].SequenceIndex
	})

	w := Window{
		Index:   (b.curStart - b.originTs) / b.windowMs,
		StartTs: b.curStart,
		EndTs:   endTs,
		Samples: samples,
	}
	b.emitted++
	return w, true
}
