package disk_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/exhume/exhume/internal/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMBR(entries ...[16]byte) []byte {
	sector := make([]byte, 512)
	for i, e := range entries {
		copy(sector[0x1BE+i*16:], e[:])
	}
	sector[510] = 0x55
	sector[511] = 0xAA
	return sector
}

func partitionEntry(ptype byte, startLBA, sectors uint32) [16]byte {
	var e [16]byte
	e[4] = ptype
	binary.LittleEndian.PutUint32(e[8:], startLBA)
	binary.LittleEndian.PutUint32(e[12:], sectors)
	return e
}

func TestParseMBR(t *testing.T) {
	sector := buildMBR(partitionEntry(0x07, 2048, 409600))

	mbr, err := disk.ParseMBR(sector)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xAA55), mbr.ReadSignature())
	assert.Equal(t, disk.PartitionTypeNTFS, mbr.PartitionEntries[0].PartitionType)
	assert.Equal(t, uint32(2048), mbr.PartitionEntries[0].ReadStartLBA())
	assert.Equal(t, uint32(409600), mbr.PartitionEntries[0].ReadTotalSectors())
}

func TestParseMBRRejectsBadSignature(t *testing.T) {
	_, err := disk.ParseMBR(make([]byte, 512))
	assert.Error(t, err)

	_, err = disk.ParseMBR(make([]byte, 100))
	assert.Error(t, err)
}

func TestFindPartitionsNTFS(t *testing.T) {
	sector := buildMBR(
		partitionEntry(0x0C, 63, 1000),    // FAT32, ignored
		partitionEntry(0x07, 2048, 409600), // NTFS
	)
	img := append(sector, make([]byte, 4096)...)

	partitions, err := disk.FindPartitions(bytes.NewReader(img), uint64(len(img)))
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	assert.Equal(t, uint64(2048*512), partitions[0].Offset)
	assert.Equal(t, uint64(409600*512), partitions[0].Size)
	assert.Equal(t, 1, partitions[0].Num)
}

func TestFindPartitionsFallsBackToWholeDisk(t *testing.T) {
	img := make([]byte, 4096) // no MBR signature

	partitions, err := disk.FindPartitions(bytes.NewReader(img), uint64(len(img)))
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	assert.Equal(t, uint64(0), partitions[0].Offset)
	assert.Equal(t, uint64(4096), partitions[0].Size)
}

func TestNormalizeVolumePath(t *testing.T) {
	// Pass-through everywhere but Windows.
	assert.Equal(t, "/dev/sda1", disk.NormalizeVolumePath("/dev/sda1"))
}
