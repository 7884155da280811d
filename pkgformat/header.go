package pkgformat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed on-disk size of ResourcePackageHeader.
const HeaderSize = 8 + 4 + 4 + 8 + 8 + 4 + headerReserved

// MetadataSize is the fixed on-disk size of one ResourceMetadata record.
const MetadataSize = 4 + 4 + 8 + 8 + nameFieldSize + 4 + 4 + 8 + hashFieldSize + metaReserved

// ResourcePackageHeader is the fixed-size record at the start of every
// package file.
type ResourcePackageHeader struct {
	Magic         [8]byte
	Version       uint32
	ResourceCount uint32
	TotalSize     uint64
	CreateTime    uint64
	Checksum      uint32
}

// Encode serializes h field-by-field, little-endian, with no implicit
// padding.
func (h *ResourcePackageHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.ResourceCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.TotalSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.CreateTime)
	binary.LittleEndian.PutUint32(buf[32:36], h.Checksum)
	// remaining headerReserved bytes are left zero.
	return buf
}

// DecodeHeader parses HeaderSize bytes into a ResourcePackageHeader.
func DecodeHeader(buf []byte) (*ResourcePackageHeader, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("pkgformat: short header: got %d bytes, want %d", len(buf), HeaderSize)
	}
	h := &ResourcePackageHeader{}
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	h.ResourceCount = binary.LittleEndian.Uint32(buf[12:16])
	h.TotalSize = binary.LittleEndian.Uint64(buf[16:24])
	h.CreateTime = binary.LittleEndian.Uint64(buf[24:32])
	h.Checksum = binary.LittleEndian.Uint32(buf[32:36])
	return h, nil
}

// MagicValid reports whether h.Magic equals the expected Magic string.
func (h *ResourcePackageHeader) MagicValid() bool {
	return bytes.Equal(h.Magic[:], []byte(Magic))
}

// ResourceMetadata is the fixed-size on-disk record describing one
// resource within a package.
type ResourceMetadata struct {
	ID             AssetID
	Type           ResourceType
	Offset         uint64
	Size           uint64
	Name           string
	Flags          uint32
	Compression    CompressionType
	OriginalSize   uint64
	Hash           string
}

// Compressed reports whether bit 0 of Flags is set.
func (m *ResourceMetadata) Compressed() bool {
	return m.Flags&FlagCompressed != 0
}

// Encode serializes m field-by-field, little-endian, with no implicit
// padding. Name and Hash are truncated/zero-padded to their fixed
// field widths.
func (m *ResourceMetadata) Encode() []byte {
	buf := make([]byte, MetadataSize)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(m.ID))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(m.Type))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:off+8], m.Offset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], m.Size)
	off += 8
	putFixedString(buf[off:off+nameFieldSize], m.Name)
	off += nameFieldSize
	binary.LittleEndian.PutUint32(buf[off:off+4], m.Flags)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(m.Compression))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:off+8], m.OriginalSize)
	off += 8
	putFixedString(buf[off:off+hashFieldSize], m.Hash)
	off += hashFieldSize
	// remaining metaReserved bytes are left zero.
	return buf
}

// DecodeMetadata parses MetadataSize bytes into a ResourceMetadata.
func DecodeMetadata(buf []byte) (*ResourceMetadata, error) {
	if len(buf) < MetadataSize {
		return nil, fmt.Errorf("pkgformat: short metadata record: got %d bytes, want %d", len(buf), MetadataSize)
	}
	m := &ResourceMetadata{}
	off := 0
	m.ID = AssetID(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	m.Type = ResourceType(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	m.Offset = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	m.Size = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	m.Name = getFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize
	m.Flags = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	m.Compression = CompressionType(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	m.OriginalSize = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	m.Hash = getFixedString(buf[off : off+hashFieldSize])
	off += hashFieldSize
	return m, nil
}

func putFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := copy(dst, s)
	if n < len(dst) {
		dst[n] = 0
	}
}

func getFixedString(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	return string(src[:n])
}

// WriteHeaderAt writes h at byte offset 0 of w.
func WriteHeaderAt(w io.WriterAt, h *ResourcePackageHeader) error {
	_, err := w.WriteAt(h.Encode(), 0)
	return err
}
