package reader

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testReadSeeker performs randomized seek+read trials against a reader
// built over a reference buffer.
func testReadSeeker(t *testing.T, newReader func([]byte) io.ReadSeeker) {
	const trials = 1000

	data := randomBuffer(1024 * 10)
	rs := newReader(data)

	var buf [64]byte

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < trials; i++ {
		offset := rng.Intn(len(data))
		readLen := rng.Intn(64)
		if max := len(data) - offset; readLen > max {
			readLen = max
		}
		if readLen == 0 {
			readLen = 1
		}

		_, err := rs.Seek(int64(offset), io.SeekStart)
		require.NoErrorf(t, err, "trial %d: Seek(%d)", i, offset)

		n, err := rs.Read(buf[:readLen])
		if err != nil && err != io.EOF {
			t.Fatalf("trial %d: Read after Seek failed: %v", i, err)
		}

		expected := data[offset:]
		if len(expected) > readLen {
			expected = expected[:readLen]
		}
		require.Equalf(t, []byte(expected), buf[:n], "trial %d: mismatch at offset %d", i, offset)
	}
}

func randomBuffer(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate random data: " + err.Error())
	}
	return b
}

func TestMultiReadSeekerRandomSeek(t *testing.T) {
	testReadSeeker(t, func(data []byte) io.ReadSeeker {
		var (
			readers []io.ReadSeeker
			sizes   []int64
		)

		pos := 0
		for pos < len(data) {
			sz := rand.Intn(1024) + 1
			if max := len(data) - pos; sz > max {
				sz = max
			}
			readers = append(readers, bytes.NewReader(data[pos:pos+sz]))
			sizes = append(sizes, int64(sz))
			pos += sz
		}
		return NewMultiReadSeeker(readers, sizes)
	})
}

func TestMultiReadSeekerWithZeroSegments(t *testing.T) {
	// A data segment, a hole, another data segment: the stream must read
	// as data + zeros + data.
	head := []byte("abcdef")
	tail := []byte("xyz")

	m := NewMultiReadSeeker(
		[]io.ReadSeeker{bytes.NewReader(head), NewZeroReadSeeker(4), bytes.NewReader(tail)},
		[]int64{6, 4, 3},
	)
	require.Equal(t, int64(13), m.Size())

	all, err := io.ReadAll(m)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef\x00\x00\x00\x00xyz"), all)

	// Seek back into the hole.
	_, err = m.Seek(7, io.SeekStart)
	require.NoError(t, err)

	var buf [4]byte
	n, err := m.Read(buf[:])
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0, 0, 0, 'x'}, buf[:])
}

func TestBufferedSeeker(t *testing.T) {
	testReadSeeker(t, func(data []byte) io.ReadSeeker {
		return NewBufferedReadSeeker(bytes.NewReader(data), 4096)
	})
}

func TestZeroReadSeekerEOF(t *testing.T) {
	z := NewZeroReadSeeker(5)

	all, err := io.ReadAll(z)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 5), all)

	_, err = z.Read(make([]byte, 1))
	require.Equal(t, io.EOF, err)
}
