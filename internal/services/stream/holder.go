package stream

import "sync"

// LatestFrame keeps only the newest frame; producers never block and readers never queue
type LatestFrame struct {
	mu     sync.RWMutex
	frame  *Frame
	seq    uint64
	closed bool
}

// Set stores f as the latest frame and stamps its sequence; false once closed
func (h *LatestFrame) Set(f Frame) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.seq++
	f.Seq = h.seq
	h.frame = &f
	return true
}

// Latest returns the newest frame, if any has arrived
func (h *LatestFrame) Latest() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.frame == nil || h.closed {
		return Frame{}, false
	}
	return *h.frame, true
}

// Close drops the frame and rejects further Sets
func (h *LatestFrame) Close() {
	h.mu.Lock()
	h.closed = true
	h.frame = nil
	h.mu.Unlock()
}

// LatestSpectrum is LatestFrame for audio magnitudes
type LatestSpectrum struct {
	mu     sync.RWMutex
	bins   []float32
	closed bool
}

// Set stores a copy of bins
func (h *LatestSpectrum) Set(bins []float32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.bins = append(h.bins[:0], bins...)
	return true
}

// Latest returns a copy of the newest spectrum
func (h *LatestSpectrum) Latest() ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.bins == nil || h.closed {
		return nil, false
	}
	return append([]float32(nil), h.bins...), true
}

// Close drops the spectrum and rejects further Sets
func (h *LatestSpectrum) Close() {
	h.mu.Lock()
	h.closed = true
	h.bins = nil
	h.mu.Unlock()
}
