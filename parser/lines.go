package parser

// lines.go reassembles newline-terminated lines from fixed-size chunk
// reads. Bytes after the last newline of a chunk are carried over and
// prepended to the next chunk, so a line is never handed out split.

import "bytes"

// lineBuffer stitches partial lines across chunk boundaries. It owns the
// leftover bytes exclusively; lines emitted from feed alias either the
// caller's chunk or the internal leftover buffer and are only valid for
// the duration of the emit call.
type lineBuffer struct {
	leftover []byte
}

// feed scans chunk for complete lines and invokes emit once per line with
// the trailing newline (and a preceding CR, if any) stripped. Bytes after
// the last newline are saved for the next feed. The first error returned
// by emit aborts the scan and is returned as-is.
func (b *lineBuffer) feed(chunk []byte, emit func(line []byte) error) error {
	data := chunk
	if len(b.leftover) > 0 {
		b.leftover = append(b.leftover, chunk...)
		data = b.leftover
	}

	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := dropCR(data[:i])
		rest := data[i+1:]
		if err := emit(line); err != nil {
			// Preserve the unprocessed remainder so the buffer stays
			// consistent if the caller resumes after a non-fatal error.
			b.saveTail(rest)
			return err
		}
		data = rest
	}

	b.saveTail(data)
	return nil
}

// flush returns the final unterminated line at end-of-stream, or nil if no
// bytes are pending. The leftover buffer is cleared either way.
func (b *lineBuffer) flush() []byte {
	if len(b.leftover) == 0 {
		b.leftover = b.leftover[:0]
		return nil
	}
	line := dropCR(b.leftover)
	b.leftover = nil
	return line
}

// pending reports how many carried-over bytes are waiting for a newline.
func (b *lineBuffer) pending() int {
	return len(b.leftover)
}

// saveTail copies tail into owned storage. tail may alias b.leftover's
// backing array; append-to-front copies are safe for forward overlap.
func (b *lineBuffer) saveTail(tail []byte) {
	b.leftover = append(b.leftover[:0], tail...)
}

func dropCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
