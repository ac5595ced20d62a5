package parser

// source.go opens the input file and layers the streaming readers the
// engine consumes:
//
//   - byte counting on the raw file, for percent-complete reporting
//   - transparent gzip/lz4 decompression, detected by magic number
//   - UTF-8 BOM skipping (Windows exports)
//   - UTF-8 sanitization, replacing invalid bytes with '?'
//
// All wrappers work in O(buffer_size) memory; nothing reads the file whole.

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"unicode/utf8"

	"github.com/pierrec/lz4/v4"
)

// ErrFileNotFound is reported (via an ErrorEvent with line number 0) when
// the input path does not exist.
var ErrFileNotFound = errors.New("file not found")

// source is an open input file with progress accounting.
type source struct {
	io.Reader
	closers []io.Closer

	count     *countingReader
	totalSize int64
}

// openSource opens path and wires up the reader stack. totalSize is the
// on-disk size of the file (compressed size for compressed inputs), used
// as the denominator for percent-complete.
func openSource(path string) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	count := &countingReader{reader: fh}
	s := &source{
		closers:   []io.Closer{fh},
		count:     count,
		totalSize: info.Size(),
	}

	decoded, err := decodeCompressed(fh, count)
	if err != nil {
		fh.Close()
		return nil, err
	}

	s.Reader = newSanitizingReader(newBOMSkipReader(decoded))
	return s, nil
}

func (s *source) Close() error {
	var err error
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// BytesConsumed returns raw file bytes read so far.
func (s *source) BytesConsumed() int64 { return s.count.bytesRead }

// Percent returns read progress as 0-100, or 0 when the size is unknown.
func (s *source) Percent() int {
	if s.totalSize <= 0 {
		return 0
	}
	p := s.count.bytesRead * 100 / s.totalSize
	if p > 100 {
		p = 100
	}
	return int(p)
}

// decodeCompressed sniffs the file's magic number and returns a reader for
// the decoded byte stream. Plain files pass through untouched.
func decodeCompressed(fh *os.File, count *countingReader) (io.Reader, error) {
	var sig [4]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch {
	case n >= 2 && sig[0] == 0x1f && sig[1] == 0x8b:
		gr, err := gzip.NewReader(count)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case n >= 4 && sig[0] == 0x04 && sig[1] == 0x22 && sig[2] == 0x4d && sig[3] == 0x18:
		return lz4.NewReader(count), nil
	default:
		return count, nil
	}
}

// countingReader tracks raw bytes consumed from the underlying file.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// bomSkipReader strips a leading UTF-8 BOM (EF BB BF) if present.
type bomSkipReader struct {
	reader  io.Reader
	checked bool
	hold    []byte
}

func newBOMSkipReader(r io.Reader) *bomSkipReader {
	return &bomSkipReader{reader: r}
}

func (r *bomSkipReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		var head [3]byte
		n, err := io.ReadFull(r.reader, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == 3 && head[0] == 0xef && head[1] == 0xbb && head[2] == 0xbf {
			// BOM consumed; fall through to a normal read.
		} else if n > 0 {
			r.hold = append(r.hold, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(r.hold) > 0 {
		n := copy(p, r.hold)
		r.hold = r.hold[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

// sanitizingReader replaces invalid UTF-8 bytes with '?' on the fly. A
// multi-byte sequence cut off at the end of a read is held back until the
// next read so it is not misreported as invalid. The replacement is a
// single byte so sanitized output never outgrows the read buffer.
type sanitizingReader struct {
	reader  io.Reader
	pending []byte
}

func newSanitizingReader(r io.Reader) *sanitizingReader {
	return &sanitizingReader{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read fills p with sanitized bytes. Full sanitization needs
// len(p) >= utf8.UTFMax; smaller destinations still never lose bytes, but
// a held-back sequence split across such reads is passed through as-is.
func (s *sanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[off:])]
	if len(s.pending) > 0 {
		return off, nil
	}

	n, err := s.reader.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	if allASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of valid bytes.
// Unless atEOF, an incomplete trailing sequence is moved to pending.
func (s *sanitizingReader) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && incompleteTail(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTail reports whether data could be the start of a multi-byte
// sequence whose remaining bytes have not arrived yet.
func incompleteTail(data []byte) bool {
	if len(data) == 0 || len(data) >= utf8.UTFMax {
		return false
	}
	want := expectedRuneLen(data[0])
	if want <= len(data) {
		return false
	}
	for _, b := range data[1:] {
		if b&0xc0 != 0x80 {
			return false
		}
	}
	return true
}

func expectedRuneLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xc0:
		return 0 // continuation byte, not a sequence start
	case b < 0xe0:
		return 2
	case b < 0xf0:
		return 3
	default:
		return 4
	}
}

func allASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
