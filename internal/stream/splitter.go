package stream

import "strings"

// LineSplitter turns a sequence of raw text chunks into complete logical
// lines. Chunk boundaries rarely fall on newlines, so the trailing partial
// line of each chunk is carried over and prefixed onto the next one.
//
// The splitter never emits a line that was truncated mid-chunk: a line is
// only yielded once its terminating newline has arrived, or at end of stream
// via Flush.
type LineSplitter struct {
	buf string
}

// NewLineSplitter creates an empty splitter.
func NewLineSplitter() *LineSplitter {
	return &LineSplitter{}
}

// Push appends a chunk to the carry-over buffer and returns every complete
// line it now holds. The text after the last newline (possibly empty,
// possibly a real partial line) stays buffered for the next Push.
func (s *LineSplitter) Push(chunk string) []string {
	s.buf += chunk

	if !strings.Contains(s.buf, "\n") {
		return nil
	}

	parts := strings.Split(s.buf, "\n")
	s.buf = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Flush returns any buffered partial content as one final logical line.
// The second return value reports whether there was anything to flush.
// Call once at end of stream.
func (s *LineSplitter) Flush() (string, bool) {
	if s.buf == "" {
		return "", false
	}
	line := s.buf
	s.buf = ""
	return line, true
}
