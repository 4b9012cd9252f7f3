package console

// History keeps the last entered command lines in a fixed size ring. The
// cursor walks from the newest entry towards older ones.
type History struct {
	lines []string
	head  int
	size  int

	// 0 means "not browsing", i means the i-th newest line.
	cursor int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{lines: make([]string, capacity)}
}

func (h *History) Len() int {
	return h.size
}

// Push adds line as the newest entry, dropping the oldest one when full, and
// stops browsing.
func (h *History) Push(line string) {
	h.cursor = 0
	if line == "" {
		return
	}
	if h.size == len(h.lines) {
		h.lines[h.head] = line
		h.head = (h.head + 1) % len(h.lines)
		return
	}
	h.lines[(h.head+h.size)%len(h.lines)] = line
	h.size++
}

// nth returns the i-th newest line, 1-based.
func (h *History) nth(i int) string {
	return h.lines[(h.head+h.size-i)%len(h.lines)]
}

// Older moves one step back. It returns false once the oldest line is
// reached.
func (h *History) Older() (string, bool) {
	if h.cursor >= h.size {
		return "", false
	}
	h.cursor++
	return h.nth(h.cursor), true
}

// Newer moves one step forward. Moving past the newest line yields an empty
// prompt.
func (h *History) Newer() (string, bool) {
	if h.cursor <= 1 {
		h.cursor = 0
		return "", false
	}
	h.cursor--
	return h.nth(h.cursor), true
}

func (h *History) Reset() {
	h.cursor = 0
}
