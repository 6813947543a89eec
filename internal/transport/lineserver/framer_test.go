package lineserver

import "testing"

func TestLineBuffer_SplitsOnNewline(t *testing.T) {
	var b LineBuffer
	b.Append([]byte("{\"cmd\":\"jump\"}\n{\"cmd\":\"move\",\"forward\":1}\r\n"))

	line, ok := b.Next()
	if !ok || line != `{"cmd":"jump"}` {
		t.Fatalf("first line = %q ok=%v", line, ok)
	}
	line, ok = b.Next()
	if !ok || line != `{"cmd":"move","forward":1}` {
		t.Fatalf("second line = %q ok=%v (CR should be stripped)", line, ok)
	}
	if _, ok := b.Next(); ok {
		t.Fatalf("expected no third line")
	}
}

func TestLineBuffer_PartialStaysBuffered(t *testing.T) {
	var b LineBuffer
	b.Append([]byte(`{"cmd":"ju`))
	if _, ok := b.Next(); ok {
		t.Fatalf("incomplete line must not be emitted")
	}
	b.Append([]byte("mp\"}\n"))
	line, ok := b.Next()
	if !ok || line != `{"cmd":"jump"}` {
		t.Fatalf("line = %q ok=%v", line, ok)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", b.Pending())
	}
}

func TestLineBuffer_SkipsBlankLines(t *testing.T) {
	var b LineBuffer
	b.Append([]byte("\n   \n\r\n  {\"cmd\":\"jump\"}  \nrest"))

	line, ok := b.Next()
	if !ok || line != `{"cmd":"jump"}` {
		t.Fatalf("line = %q ok=%v (whitespace should be trimmed, blanks skipped)", line, ok)
	}
	if _, ok := b.Next(); ok {
		t.Fatalf("trailing partial must not be emitted")
	}
	if b.Pending() != len("rest") {
		t.Fatalf("pending = %d, want %d", b.Pending(), len("rest"))
	}
}
