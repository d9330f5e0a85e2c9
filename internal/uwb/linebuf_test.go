package uwb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineAccumulator_Framing(t *testing.T) {
	a := NewLineAccumulator(0)
	lines := a.Write([]byte("OK\r\n\r\n\nAT+RANGE=tid:1\r\npartial"))
	assert.Equal(t, []string{"OK", "AT+RANGE=tid:1"}, lines)
	assert.Equal(t, len("partial"), a.Pending())

	lines = a.Write([]byte(" line\n"))
	assert.Equal(t, []string{"partial line"}, lines)
	assert.Equal(t, 0, a.Pending())
}

func TestLineAccumulator_CarriageReturnNeverStored(t *testing.T) {
	a := NewLineAccumulator(0)
	lines := a.Write([]byte("a\rb\r\rc\n"))
	assert.Equal(t, []string{"abc"}, lines)
}

func TestLineAccumulator_ByteAtATime(t *testing.T) {
	a := NewLineAccumulator(0)
	var got []string
	for _, c := range []byte("x\ny\n") {
		if line, ok := a.Feed(c); ok {
			got = append(got, line)
		}
	}
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestLineAccumulator_Overflow(t *testing.T) {
	a := NewLineAccumulator(8)
	long := strings.Repeat("z", 20)
	lines := a.Write([]byte(long + "\nshort\n"))
	assert.Equal(t, []string{"short"}, lines)
	assert.Equal(t, 1, a.Overflows())
	assert.Equal(t, 0, a.Pending())
}

func TestLineAccumulator_ExactlyMax(t *testing.T) {
	a := NewLineAccumulator(4)
	assert.Equal(t, []string{"abcd"}, a.Write([]byte("abcd\n")))
	assert.Equal(t, 0, a.Overflows())
}

func TestLineAccumulator_Unbounded(t *testing.T) {
	a := NewLineAccumulator(0)
	long := strings.Repeat("q", 10000)
	assert.Equal(t, []string{long}, a.Write([]byte(long+"\n")))
}
