package fixedwidth

import (
	"strconv"
	"strings"
	"testing"
)

type row struct {
	name string
	qty  int
}

var rowLayout = Layout[row]{
	{Value: func(r row) string { return r.name }, Width: 8},
	{Value: func(r row) string { return strconv.Itoa(r.qty) }, Width: 5, Side: PadLeft},
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		rec  row
		want string
	}{
		{"short values", row{"ant", 7}, "ant         7"},
		{"exact widths", row{"oversize", 12345}, "oversize12345"},
		{"truncated", row{"grasshopper", 123456}, "grasshop12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowLayout.Format(tt.rec); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTruncation(t *testing.T) {
	l := Layout[string]{{Value: func(s string) string { return s }, Width: 3}}
	if got := l.Format("abcdef"); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestFormatCustomPad(t *testing.T) {
	l := Layout[int]{{
		Value: strconv.Itoa,
		Width: 6,
		Pad:   '0',
		Side:  PadLeft,
	}}
	if got := l.Format(42); got != "000042" {
		t.Errorf("got %q, want %q", got, "000042")
	}
}

func TestWrite(t *testing.T) {
	recs := []row{{"ant", 1}, {"bee", 22}}

	var sb strings.Builder
	if err := rowLayout.Write(&sb, recs); err != nil {
		t.Fatal(err)
	}

	want := "ant         1\nbee        22\n"
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestWriteEmpty(t *testing.T) {
	var sb strings.Builder
	if err := rowLayout.Write(&sb, nil); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "" {
		t.Errorf("got %q, want empty", sb.String())
	}
}

func TestLineWidth(t *testing.T) {
	if got := rowLayout.LineWidth(); got != 13 {
		t.Errorf("LineWidth() = %d, want 13", got)
	}
	for _, rec := range []row{{"a", 1}, {"stretched-name", 999999999}} {
		if got := len(rowLayout.Format(rec)); got != 13 {
			t.Errorf("len(Format(%+v)) = %d, want 13", rec, got)
		}
	}
}
