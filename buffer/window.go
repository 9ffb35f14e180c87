package buffer

// Window is a fixed-size circular buffer of float64 observations that keeps
// a running mean over the retained values. Adaptive samplers use it to track
// recent acceptance rates without holding the full history.
type Window struct {
	buffer    []float64 // actual storage
	pos       int       // Current position in buffer
	sum       float64   // Sum of retained values
	Size      int       // Size is the fixed number of observations kept in memory
	Count     int       // Count is the number of observations in memory. Will always be <= Size
	TotalSeen int64     // TotalSeen is the total number of times Add has been called
}

// NewWindow creates a new circular window of the given size. A size below 1
// is adjusted up to 1.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}

	return &Window{
		buffer: make([]float64, size),
		pos:    0,
		Size:   size,
		Count:  0,
	}
}

// Add appends the given value to the window, overwriting the oldest entry
func (w *Window) Add(v float64) {
	w.TotalSeen++

	w.sum -= w.buffer[w.pos]
	w.sum += v
	w.buffer[w.pos] = v

	w.pos = (w.pos + 1) % w.Size

	w.Count++
	if w.Count > w.Size {
		w.Count = w.Size // max out
	}
}

// Full returns true once Add has been called at least Size times
func (w *Window) Full() bool {
	return w.Count >= w.Size
}

// Mean returns the mean of the retained values, or 0 if nothing has been
// added yet.
func (w *Window) Mean() float64 {
	if w.Count < 1 {
		return 0.0
	}
	return w.sum / float64(w.Count)
}
