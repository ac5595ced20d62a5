// Package fixedwidth renders records as fixed-width text lines from an
// explicit, compile-time-checked layout. Each column names its accessor,
// width, pad character and pad side; there is no runtime reflection or
// per-field metadata lookup.
package fixedwidth

import (
	"bufio"
	"io"
	"strings"
)

// Side selects which side of a value is padded.
type Side int

const (
	// PadRight left-aligns the value (pad on the right).
	PadRight Side = iota
	// PadLeft right-aligns the value (pad on the left).
	PadLeft
)

// Column describes one fixed-width field of a record.
type Column[T any] struct {
	// Value extracts the column's string value from a record.
	Value func(T) string

	// Width is the exact rendered width. Longer values are truncated.
	Width int

	// Pad is the fill character; 0 means ' '.
	Pad byte

	// Side is where padding goes; the zero value left-aligns.
	Side Side
}

// Layout is the ordered column table for one record type.
type Layout[T any] []Column[T]

// Format renders one record as a fixed-width line without a trailing
// newline.
func (l Layout[T]) Format(rec T) string {
	var b strings.Builder
	total := 0
	for _, col := range l {
		total += col.Width
	}
	b.Grow(total)

	for _, col := range l {
		writeCell(&b, col.Value(rec), col.Width, col.padByte(), col.Side)
	}
	return b.String()
}

// Write renders records one per line to w.
func (l Layout[T]) Write(w io.Writer, recs []T) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := bw.WriteString(l.Format(rec)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LineWidth returns the total width of one rendered line.
func (l Layout[T]) LineWidth() int {
	total := 0
	for _, col := range l {
		total += col.Width
	}
	return total
}

func (c Column[T]) padByte() byte {
	if c.Pad == 0 {
		return ' '
	}
	return c.Pad
}

func writeCell(b *strings.Builder, value string, width int, pad byte, side Side) {
	if len(value) > width {
		value = value[:width]
	}
	fill := width - len(value)

	if side == PadLeft {
		for i := 0; i < fill; i++ {
			b.WriteByte(pad)
		}
		b.WriteString(value)
		return
	}
	b.WriteString(value)
	for i := 0; i < fill; i++ {
		b.WriteByte(pad)
	}
}
