package device_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/exhume/exhume/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openImage(t *testing.T, content []byte) *device.Device {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))

	dev, err := device.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestDeviceRead(t *testing.T) {
	dev := openImage(t, []byte("0123456789"))

	assert.Equal(t, uint64(10), dev.Size())

	b, err := dev.Read(2, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), b)

	b, err = dev.Read(0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), b)
}

func TestDeviceReadOutOfBounds(t *testing.T) {
	dev := openImage(t, []byte("0123456789"))

	_, err := dev.Read(8, 4)
	assert.ErrorIs(t, err, device.ErrOutOfBounds)

	_, err = dev.Read(100, 1)
	assert.ErrorIs(t, err, device.ErrOutOfBounds)
}

func TestDeviceCloseIdempotent(t *testing.T) {
	dev := openImage(t, []byte("abc"))
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
}

func TestDeviceOpenMissing(t *testing.T) {
	_, err := device.Open(filepath.Join(t.TempDir(), "nope.img"))
	assert.Error(t, err)
}
