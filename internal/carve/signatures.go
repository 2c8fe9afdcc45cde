// Package carve holds the file-signature registry for content carving
// over unallocated clusters. Only the registry exists today; the carving
// scanner itself is future work tracked alongside the MFT engine, which
// covers the recoverable-metadata cases first.
package carve

// Signature describes one carvable file format by its magic bytes.
type Signature struct {
	Ext         string
	Description string
	Magic       [][]byte
}

// Signatures lists the formats a future carving pass would detect.
func Signatures() []Signature {
	return []Signature{
		{
			Ext:         "jpg",
			Description: "JPEG image",
			Magic:       [][]byte{{0xFF, 0xD8, 0xFF}},
		},
		{
			Ext:         "png",
			Description: "PNG image",
			Magic:       [][]byte{{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
		},
		{
			Ext:         "zip",
			Description: "ZIP archive (also docx/xlsx/jar)",
			Magic:       [][]byte{{'P', 'K', 0x03, 0x04}},
		},
		{
			Ext:         "mp4",
			Description: "MP4/ISO base media",
			Magic: [][]byte{
				{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'},
				{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p'},
			},
		},
	}
}
