package parser

// fields.go provides zero-copy field extraction from a line of bytes.
//
// Fields are slices into the caller's buffer; callers that need to retain
// a field past the current line must copy it (converting to string does).

import "bytes"

// NextField returns the bytes before the first occurrence of delim, the
// remainder after the delimiter, and whether a delimiter was found. When
// no delimiter remains, the whole input is the final field, rest is empty
// and more is false. Absence of a delimiter is a valid terminal case, not
// an error.
func NextField(data []byte, delim byte) (field, rest []byte, more bool) {
	i := bytes.IndexByte(data, delim)
	if i < 0 {
		return data, nil, false
	}
	return data[:i], data[i+1:], true
}

// SplitFields slices data into delimiter-separated fields, appending them
// to dst. The returned fields alias data. An empty input yields a single
// empty field, matching the one-field reading of a delimiter-free line.
func SplitFields(dst [][]byte, data []byte, delim byte) [][]byte {
	for {
		field, rest, more := NextField(data, delim)
		dst = append(dst, field)
		if !more {
			return dst
		}
		data = rest
	}
}

// TrimBytes strips leading and trailing space, tab, CR and LF without
// allocating. The result aliases data.
func TrimBytes(data []byte) []byte {
	start := 0
	for start < len(data) && isFieldSpace(data[start]) {
		start++
	}
	end := len(data)
	for end > start && isFieldSpace(data[end-1]) {
		end--
	}
	return data[start:end]
}

func isFieldSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
