package llm

import "strings"

const (
	// framePrefix starts every payload line of a streamed completion.
	framePrefix = "data: "
	// FramePrefixLen is the number of characters stripped from a payload line.
	FramePrefixLen = len(framePrefix)
	// DoneSentinel is the payload that ends a streamed completion.
	DoneSentinel = "[DONE]"
)

// PayloadReader turns the raw lines of a streamed completion into payloads.
// Empty lines, comment lines, lines shorter than the frame prefix and lines
// that are blank after stripping are skipped. The sequence ends at the
// DoneSentinel or when the underlying stream ends, and cannot be restarted.
type PayloadReader struct {
	lines   LineStream
	payload string
	done    bool
	err     error
}

// NewPayloadReader wraps lines. Closing the reader closes lines.
func NewPayloadReader(lines LineStream) *PayloadReader {
	return &PayloadReader{lines: lines}
}

// Next advances to the next payload, reading as many lines as needed.
func (r *PayloadReader) Next() bool {
	if r.done {
		return false
	}
	for r.lines.Next() {
		payload, ok := stripFrame(r.lines.Line())
		if !ok {
			continue
		}
		if strings.TrimSpace(payload) == DoneSentinel {
			r.done = true
			return false
		}
		r.payload = payload
		return true
	}
	r.done = true
	r.err = r.lines.Err()
	return false
}

// Payload returns the current payload, without the frame prefix.
func (r *PayloadReader) Payload() string { return r.payload }

// Err returns the error that ended the sequence, if any.
func (r *PayloadReader) Err() error { return r.err }

// Close releases the underlying stream.
func (r *PayloadReader) Close() error {
	r.done = true
	return r.lines.Close()
}

// stripFrame removes the frame prefix from line. ok is false for lines that
// carry no payload.
func stripFrame(line string) (payload string, ok bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" || strings.HasPrefix(line, ":") || len(line) < FramePrefixLen {
		return "", false
	}
	payload = line[FramePrefixLen:]
	if strings.TrimSpace(payload) == "" {
		return "", false
	}
	return payload, true
}
