package pkgformat

import (
	"fmt"
	"hash/fnv"
)

// HashName computes the AssetID for a logical resource name: FNV-1a-32
// over its UTF-8 bytes. mount uses this to assign ids independent of
// whatever id the packer wrote to disk.
func HashName(name string) AssetID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return AssetID(h.Sum32())
}

// ContentHash computes the identity hash recorded in a metadata
// record's Hash field: FNV-1a-64 over the stored (possibly compressed)
// payload bytes, formatted as 16 lowercase hex digits. This hash is
// for cache/identity purposes only; it is not collision-resistant and
// MUST NOT be used for integrity or security decisions.
func ContentHash(payload []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(payload)
	return fmt.Sprintf("%016x", h.Sum64())
}
