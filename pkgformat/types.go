// Package pkgformat defines the on-disk layout of an amberpipeline
// package file: the header, the metadata table, the checksum and
// content-hash algorithms. It performs no I/O of its own; the Packer
// and Manager packages read and write these types against a
// [io.ReaderAt]/[io.Writer].
package pkgformat

// AssetID identifies a resource uniquely within the Manager's
// namespace. Zero means "invalid / not found". Nonzero values are
// produced by HashName over a resource's logical name.
type AssetID uint32

// InvalidAssetID is the reserved zero value of AssetID.
const InvalidAssetID AssetID = 0

// ResourceType is a closed enumeration of resource kinds a package
// entry can carry.
type ResourceType uint32

const (
	ResourceTypeUnknown ResourceType = iota
	ResourceTypeTexture2D
	ResourceTypeTextureCube
	ResourceTypeModel
	ResourceTypeMaterial
	ResourceTypeShader
	ResourceTypeSound
	ResourceTypeAnimation
	ResourceTypeParticleSystem
	ResourceTypeScript
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeUnknown:
		return "UNKNOWN"
	case ResourceTypeTexture2D:
		return "TEXTURE_2D"
	case ResourceTypeTextureCube:
		return "TEXTURE_CUBE"
	case ResourceTypeModel:
		return "MODEL"
	case ResourceTypeMaterial:
		return "MATERIAL"
	case ResourceTypeShader:
		return "SHADER"
	case ResourceTypeSound:
		return "SOUND"
	case ResourceTypeAnimation:
		return "ANIMATION"
	case ResourceTypeParticleSystem:
		return "PARTICLE_SYSTEM"
	case ResourceTypeScript:
		return "SCRIPT"
	default:
		return "UNKNOWN"
	}
}

// CompressionType is a closed enumeration of codecs a payload may be
// stored under. Only None and Deflate are mandatory; the rest are
// recognized but dispatch to ErrUnsupportedCodec.
type CompressionType uint32

const (
	CompressionNone CompressionType = iota
	CompressionDeflate
	CompressionLZ4
	CompressionZSTD
	CompressionBC7
	CompressionASTC
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionDeflate:
		return "DEFLATE"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZSTD:
		return "ZSTD"
	case CompressionBC7:
		return "BC7"
	case CompressionASTC:
		return "ASTC"
	default:
		return "UNKNOWN_CODEC"
	}
}

// FlagCompressed is bit 0 of ResourceMetadata.Flags.
const FlagCompressed uint32 = 1 << 0

// Magic is the 8-byte identifier every package file starts with.
const Magic = "AMBPKG01"

// CurrentVersion is the highest package format version this module
// understands. mount rejects anything greater.
const CurrentVersion uint32 = 1

const (
	nameFieldSize   = 256
	hashFieldSize   = 32
	headerReserved  = 16
	metaReserved    = 16
)
