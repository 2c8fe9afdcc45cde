package disk

import (
	"fmt"
	"io"
)

// Partition locates a filesystem inside a larger disk.
type Partition struct {
	Type      PartitionType
	Num       int
	Offset    uint64 // bytes from the start of the disk
	Size      uint64 // bytes
	BlockSize uint32
}

// FindPartitions reads sector 0 of the disk and returns the NTFS partition
// candidates. Images without a valid MBR (plain partition dumps) yield a
// single pseudo-partition spanning the whole disk. A protective GPT entry
// is treated the same way, since the tool does not walk GPT headers.
func FindPartitions(r io.ReaderAt, diskSize uint64) ([]Partition, error) {
	var sector [mbrSize]byte
	if _, err := r.ReadAt(sector[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read sector 0: %w", err)
	}

	mbr, err := ParseMBR(sector[:])
	if err != nil {
		return []Partition{wholeDisk(diskSize)}, nil
	}

	var partitions []Partition
	for n, p := range mbr.PartitionEntries {
		if p.PartitionType != PartitionTypeNTFS {
			continue
		}
		partitions = append(partitions, Partition{
			Type:      p.PartitionType,
			Num:       n,
			Offset:    uint64(p.ReadStartLBA()) * DefaultBlocksize,
			Size:      uint64(p.ReadTotalSectors()) * DefaultBlocksize,
			BlockSize: DefaultBlocksize,
		})
	}

	if len(partitions) == 0 {
		return []Partition{wholeDisk(diskSize)}, nil
	}
	return partitions, nil
}

func wholeDisk(diskSize uint64) Partition {
	return Partition{
		Type:      PartitionTypeNTFS,
		Num:       0,
		Offset:    0,
		Size:      diskSize,
		BlockSize: DefaultBlocksize,
	}
}
