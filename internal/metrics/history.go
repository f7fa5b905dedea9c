package metrics

// History keeps the most recent values of a series for charting.
type History struct {
	limit  int
	values []float64
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 60
	}
	return &History{limit: limit, values: make([]float64, 0, limit)}
}

func (h *History) Push(v float64) {
	if len(h.values) == h.limit {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.limit-1]
	}
	h.values = append(h.values, v)
}

// Values returns a copy, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

func (h *History) Len() int { return len(h.values) }

func (h *History) Reset() { h.values = h.values[:0] }
