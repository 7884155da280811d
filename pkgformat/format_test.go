package pkgformat

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &ResourcePackageHeader{
		Version:       1,
		ResourceCount: 3,
		TotalSize:     12345,
		CreateTime:    1700000000,
		Checksum:      0xdeadbeef,
	}
	copy(h.Magic[:], []byte(Magic))

	decoded, err := DecodeHeader(h.Encode())
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if !decoded.MagicValid() {
		t.Fatalf("magic mismatch: %q", decoded.Magic)
	}
	if *decoded != *h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	cases := []ResourceMetadata{
		{
			ID: 42, Type: ResourceTypeScript, Offset: 100, Size: 5,
			Name: "hello", Flags: 0, Compression: CompressionNone,
			OriginalSize: 5, Hash: ContentHash([]byte("hello")),
		},
		{
			ID: 7, Type: ResourceTypeTexture2D, Offset: 0, Size: 0,
			Name: "", Flags: FlagCompressed, Compression: CompressionDeflate,
			OriginalSize: 0, Hash: "",
		},
	}
	for _, m := range cases {
		decoded, err := DecodeMetadata(m.Encode())
		if err != nil {
			t.Fatalf("DecodeMetadata: %v", err)
		}
		if *decoded != m {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, m)
		}
	}
}

func TestMetadataShortNameIsNulTerminated(t *testing.T) {
	m := ResourceMetadata{Name: "short"}
	buf := m.Encode()
	// id(4) + type(4) + offset(8) + size(8) precede the name field.
	nameField := buf[24 : 24+nameFieldSize]
	if nameField[5] != 0 {
		t.Fatalf("expected NUL terminator after name, got %v", nameField[:6])
	}
	if !bytes.Equal(nameField[:5], []byte("short")) {
		t.Fatalf("name field corrupted: %v", nameField[:5])
	}
}

func TestChecksumKnownVector(t *testing.T) {
	// CRC-32/ISO-HDLC ("AMBPKG01" shifted out) of an empty slice under
	// init 0xFFFFFFFF / final XOR 0xFFFFFFFF is 0.
	if got := Checksum(nil); got != 0 {
		t.Fatalf("Checksum(nil) = %#x, want 0", got)
	}
	// CRC32 of "123456789" is the standard conformance vector 0xCBF43926.
	if got := Checksum([]byte("123456789")); got != 0xCBF43926 {
		t.Fatalf("Checksum(\"123456789\") = %#x, want 0xCBF43926", got)
	}
}

func TestHashNameDeterministic(t *testing.T) {
	a := HashName("hello")
	b := HashName("hello")
	if a != b {
		t.Fatalf("HashName not deterministic: %d != %d", a, b)
	}
	if a == InvalidAssetID {
		t.Fatalf("HashName(\"hello\") collided with the reserved invalid id")
	}
	if HashName("hello") == HashName("world") {
		t.Fatalf("unexpected hash collision between distinct names")
	}
}

func TestContentHashFormat(t *testing.T) {
	h := ContentHash([]byte("hello"))
	if len(h) != 16 {
		t.Fatalf("ContentHash length = %d, want 16", len(h))
	}
	if ContentHash([]byte("hello")) != h {
		t.Fatalf("ContentHash not deterministic")
	}
	if ContentHash([]byte("world")) == h {
		t.Fatalf("unexpected content hash collision")
	}
}

func TestCompressedFlag(t *testing.T) {
	m := ResourceMetadata{Flags: FlagCompressed}
	if !m.Compressed() {
		t.Fatalf("expected Compressed() true")
	}
	m.Flags = 0
	if m.Compressed() {
		t.Fatalf("expected Compressed() false")
	}
}
