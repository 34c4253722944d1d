package connection

// History is a bounded log of connection activity, oldest line first.
type History struct {
	lines []string
	start int
	size  int
}

// NewHistory keeps at most capacity lines.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{lines: make([]string, capacity)}
}

// Add appends a line, evicting the oldest one when full.
func (h *History) Add(line string) {
	idx := (h.start + h.size) % len(h.lines)
	h.lines[idx] = line
	if h.size < len(h.lines) {
		h.size++
		return
	}
	h.start = (h.start + 1) % len(h.lines)
}

// Lines returns a copy of the stored lines, oldest first.
func (h *History) Lines() []string {
	out := make([]string, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.lines[(h.start+i)%len(h.lines)])
	}
	return out
}

// Len returns the number of stored lines.
func (h *History) Len() int {
	return h.size
}
