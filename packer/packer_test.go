package packer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"

	"github.com/CognotEngine/amberpipeline/pkgformat"
)

func TestPackEmptyFailsWithNoResources(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pkg")

	p, err := New(Config{OutputPath: out})
	require.NoError(t, err)

	err = p.Pack()
	require.ErrorIs(t, err, pkgformat.ErrNoResources)

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "pack() must not create a file on failure")
}

func TestPackSingleUncompressedText(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.script")
	require.NoError(t, os.WriteFile(src, []byte("Hello"), 0o644))

	out := filepath.Join(dir, "out.pkg")
	p, err := New(Config{OutputPath: out, CompressionLevel: 0})
	require.NoError(t, err)
	require.NoError(t, p.AddResource(src, pkgformat.ResourceTypeUnknown))
	require.NoError(t, p.Pack())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	header, err := pkgformat.DecodeHeader(data[:pkgformat.HeaderSize])
	require.NoError(t, err)
	require.True(t, header.MagicValid())
	require.EqualValues(t, 1, header.Version)
	require.EqualValues(t, 1, header.ResourceCount)

	wantSize := uint64(pkgformat.HeaderSize) + uint64(pkgformat.MetadataSize) + 5
	require.EqualValues(t, wantSize, header.TotalSize)
	require.EqualValues(t, len(data), header.TotalSize)

	tail := data[pkgformat.HeaderSize:]
	require.Equal(t, header.Checksum, pkgformat.Checksum(tail))

	meta, err := pkgformat.DecodeMetadata(tail[:pkgformat.MetadataSize])
	require.NoError(t, err)
	require.Equal(t, "hello", meta.Name)
	require.Equal(t, pkgformat.ResourceTypeScript, meta.Type)
	require.EqualValues(t, 5, meta.Size)
	require.EqualValues(t, 5, meta.OriginalSize)
	require.Equal(t, pkgformat.CompressionNone, meta.Compression)
	require.EqualValues(t, pkgformat.HeaderSize+pkgformat.MetadataSize, meta.Offset)

	payload := data[meta.Offset : meta.Offset+meta.Size]
	require.True(t, bytes.Equal(payload, []byte("Hello")))
}

func TestPackDeflateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "filler.script")
	payload := bytes.Repeat([]byte{0x41}, 10000)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	out := filepath.Join(dir, "out.pkg")
	p, err := New(Config{OutputPath: out, CompressionLevel: 6})
	require.NoError(t, err)
	require.NoError(t, p.AddResource(src, pkgformat.ResourceTypeUnknown))
	require.NoError(t, p.Pack())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tail := data[pkgformat.HeaderSize:]
	meta, err := pkgformat.DecodeMetadata(tail[:pkgformat.MetadataSize])
	require.NoError(t, err)

	require.Equal(t, pkgformat.CompressionDeflate, meta.Compression)
	require.EqualValues(t, 10000, meta.OriginalSize)
	require.Less(t, meta.Size, uint64(100))

	stored := data[meta.Offset : meta.Offset+meta.Size]
	restored, err := inflateForTest(stored, 10000)
	require.NoError(t, err)
	require.True(t, bytes.Equal(restored, payload))
}

func TestAddResourceRejectsDuplicatePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.script")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	p, err := New(Config{OutputPath: filepath.Join(dir, "out.pkg")})
	require.NoError(t, err)
	require.NoError(t, p.AddResource(src, pkgformat.ResourceTypeUnknown))
	err = p.AddResource(src, pkgformat.ResourceTypeUnknown)
	require.ErrorIs(t, err, pkgformat.ErrDuplicate)
}

func TestAddResourceRejectsCollidingBasename(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "shared.script")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	b := filepath.Join(sub, "shared.lua")
	require.NoError(t, os.WriteFile(b, []byte("y"), 0o644))

	p, err := New(Config{OutputPath: filepath.Join(dir, "out.pkg")})
	require.NoError(t, err)
	require.NoError(t, p.AddResource(a, pkgformat.ResourceTypeUnknown))
	err = p.AddResource(b, pkgformat.ResourceTypeUnknown)
	require.ErrorIs(t, err, pkgformat.ErrDuplicate)
}

func TestAddResourceUnknownExtensionFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "weird.xyz123")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	p, err := New(Config{OutputPath: filepath.Join(dir, "out.pkg")})
	require.NoError(t, err)
	err = p.AddResource(src, pkgformat.ResourceTypeUnknown)
	require.ErrorIs(t, err, pkgformat.ErrUnknownType)
}

func TestAddResourceDirectoryRecurses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.script"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.lua"), []byte("b"), 0o644))

	p, err := New(Config{OutputPath: filepath.Join(dir, "out.pkg")})
	require.NoError(t, err)
	require.NoError(t, p.AddResourceDirectory(dir, pkgformat.ResourceTypeUnknown))
	require.Equal(t, 2, p.ResourceCount())
}

func TestPackRespectsOverwriteFlag(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pkg")
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0o644))

	src := filepath.Join(dir, "a.script")
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o644))

	p, err := New(Config{OutputPath: out, Overwrite: false})
	require.NoError(t, err)
	require.NoError(t, p.AddResource(src, pkgformat.ResourceTypeUnknown))
	err = p.Pack()
	require.Error(t, err)

	p2, err := New(Config{OutputPath: out, Overwrite: true})
	require.NoError(t, err)
	require.NoError(t, p2.AddResource(src, pkgformat.ResourceTypeUnknown))
	require.NoError(t, p2.Pack())
}

// inflateForTest mirrors manager's decompress path for DEFLATE, kept
// local so packer's tests don't depend on the manager package.
func inflateForTest(stored []byte, originalSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(stored))
	defer r.Close()
	out := make([]byte, originalSize)
	_, err := io.ReadFull(r, out)
	return out, err
}
