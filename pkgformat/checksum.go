package pkgformat

import "hash/crc32"

// checksumTable is the standard CRC-32 table (polynomial 0xEDB88320,
// reflected), the same table hash/crc32.IEEE uses. It is named
// explicitly here because the checksum algorithm is part of the file
// format's on-disk contract, not an implementation detail that happens
// to match the stdlib's default table.
var checksumTable = crc32.MakeTable(crc32.IEEE)

// Checksum computes the package checksum: CRC32 with polynomial
// 0xEDB88320, initial register 0xFFFFFFFF, final XOR 0xFFFFFFFF, over
// the given bytes (conventionally everything in the file after the
// header).
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, checksumTable)
}
