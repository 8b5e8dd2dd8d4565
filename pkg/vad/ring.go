package vad

// sampleRing is a fixed-capacity circular buffer of PCM samples. Writing
// past capacity evicts the oldest samples, so an over-long utterance is
// truncated from the front rather than growing without bound.
type sampleRing struct {
	buf   []int16
	start int
	n     int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]int16, capacity)}
}

// Write appends samples, evicting the oldest when capacity is exceeded.
// If the input alone exceeds capacity only its tail is kept.
func (r *sampleRing) Write(samples []int16) {
	size := len(r.buf)
	if len(samples) >= size {
		copy(r.buf, samples[len(samples)-size:])
		r.start = 0
		r.n = size
		return
	}

	for _, s := range samples {
		idx := (r.start + r.n) % size
		r.buf[idx] = s
		if r.n < size {
			r.n++
		} else {
			r.start = (r.start + 1) % size
		}
	}
}

// Samples returns the buffered samples in arrival order as a fresh slice.
func (r *sampleRing) Samples() []int16 {
	out := make([]int16, r.n)
	for i := range r.n {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of buffered samples.
func (r *sampleRing) Len() int { return r.n }

// Reset empties the ring without releasing its backing array.
func (r *sampleRing) Reset() {
	r.start = 0
	r.n = 0
}
