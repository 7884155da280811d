// Package packer implements the Asset Packer: a one-shot,
// single-threaded pipeline that aggregates on-disk source files into a
// single amberpipeline package file.
package packer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/CognotEngine/amberpipeline/internal/clock"
	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/pkgformat"
)

// Config holds the options a Packer is constructed with.
type Config struct {
	// OutputPath is the destination .pkg path. Required.
	OutputPath string
	// Version is written into the package header. Defaults to 1.
	Version uint32
	// CompressionLevel is clamped to 0-9. 0 disables compression;
	// 1-9 select a DEFLATE level.
	CompressionLevel int
	// Overwrite, if false, makes Pack fail before opening the output
	// if OutputPath already exists.
	Overwrite bool
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.CompressionLevel < 0 {
		c.CompressionLevel = 0
	}
	if c.CompressionLevel > 9 {
		c.CompressionLevel = 9
	}
}

type pendingResource struct {
	path string
	name string
	typ  pkgformat.ResourceType
}

// Packer aggregates resources and writes a single package file.
// Packer is not safe for concurrent use; it is intended for one-shot
// CLI use.
type Packer struct {
	cfg Config

	pending   []pendingResource
	seenPaths map[string]struct{}
	seenNames map[string]struct{}

	processedFiles int
	resourceCount  int
	totalSize      uint64
}

// New constructs a Packer. OutputPath must be set.
func New(cfg Config) (*Packer, error) {
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("packer: output_path is required")
	}
	cfg.applyDefaults()
	return &Packer{
		cfg:       cfg,
		seenPaths: make(map[string]struct{}),
		seenNames: make(map[string]struct{}),
	}, nil
}

// SetOutputPath updates the destination path.
func (p *Packer) SetOutputPath(path string) { p.cfg.OutputPath = path }

// SetVersion updates the header version written at Pack time.
func (p *Packer) SetVersion(v uint32) { p.cfg.Version = v }

// SetCompressionLevel updates the DEFLATE level (clamped 0-9).
func (p *Packer) SetCompressionLevel(level int) {
	p.cfg.CompressionLevel = level
	p.cfg.applyDefaults()
}

// SetOverwrite toggles whether an existing OutputPath is allowed.
func (p *Packer) SetOverwrite(overwrite bool) { p.cfg.Overwrite = overwrite }

// AddResource registers a single regular file. typ may be
// ResourceTypeUnknown to request extension-based detection.
func (p *Packer) AddResource(path string, typ pkgformat.ResourceType) error {
	if _, dup := p.seenPaths[path]; dup {
		return fmt.Errorf("%w: %s", pkgformat.ErrDuplicate, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", pkgformat.ErrIO, path)
	}

	if typ == pkgformat.ResourceTypeUnknown {
		detected, ok := detectType(path)
		if !ok {
			return fmt.Errorf("%w: %s", pkgformat.ErrUnknownType, path)
		}
		typ = detected
	}

	name := logicalName(path)
	if _, dup := p.seenNames[name]; dup {
		return fmt.Errorf("%w: name %q collides with an existing resource", pkgformat.ErrDuplicate, name)
	}

	p.seenPaths[path] = struct{}{}
	p.seenNames[name] = struct{}{}
	p.pending = append(p.pending, pendingResource{path: path, name: name, typ: typ})
	return nil
}

// AddResourceDirectory recursively adds every regular file beneath
// dir. typ is applied to every file; pass ResourceTypeUnknown to infer
// each file's type individually from its extension.
func (p *Packer) AddResourceDirectory(dir string, typ pkgformat.ResourceType) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", pkgformat.ErrIO, dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return p.AddResource(path, typ)
	})
}

// ResourceCount returns the number of resources added so far.
func (p *Packer) ResourceCount() int { return len(p.pending) }

// TotalSize returns the output file's total size, valid only after a
// successful Pack.
func (p *Packer) TotalSize() uint64 { return p.totalSize }

// ProcessedFiles returns how many input files Pack has read so far
// (useful for progress reporting from a CLI front-end; meaningful
// during as well as after Pack since it is updated as each resource is
// read).
func (p *Packer) ProcessedFiles() int { return p.processedFiles }

type builtResource struct {
	meta    pkgformat.ResourceMetadata
	payload []byte
}

// Pack runs the full write pipeline: enumerate, classify (already
// done by AddResource), read, optionally compress, assign ids, lay
// out, write, patch offsets, finalize checksum. On success it renames
// a temp file into place; on failure the temp file is left on disk
// (mirrors the source's behavior of not cleaning up a partial output,
// except that here the partial file never occupies the final path).
func (p *Packer) Pack() error {
	if len(p.pending) == 0 {
		return pkgformat.ErrNoResources
	}
	if !p.cfg.Overwrite {
		if _, err := os.Stat(p.cfg.OutputPath); err == nil {
			return fmt.Errorf("packer: %s already exists and overwrite is disabled", p.cfg.OutputPath)
		}
	}

	built, err := p.readAndCompress()
	if err != nil {
		return err
	}

	tmpPath := p.cfg.OutputPath + ".tmp-" + uuid.New().String()
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	defer f.Close()

	if err := writePackage(f, p.cfg.Version, built); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}

	if err := os.Rename(tmpPath, p.cfg.OutputPath); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}

	info, err := os.Stat(p.cfg.OutputPath)
	if err == nil {
		p.totalSize = uint64(info.Size())
	}
	p.resourceCount = len(built)
	corelog.Info("packer: wrote %s (%d resources, %d bytes)", p.cfg.OutputPath, p.resourceCount, p.totalSize)
	return nil
}

// readAndCompress reads every pending resource's bytes and applies
// the compression policy: attempt DEFLATE for level > 0; if the
// compressed size is not smaller than the original, store
// uncompressed instead.
func (p *Packer) readAndCompress() ([]builtResource, error) {
	built := make([]builtResource, 0, len(p.pending))
	for _, res := range p.pending {
		raw, err := os.ReadFile(res.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
		p.processedFiles++

		stored := raw
		compression := pkgformat.CompressionNone
		flags := uint32(0)
		originalSize := uint64(len(raw))

		if p.cfg.CompressionLevel > 0 {
			compressed, err := deflate(raw, p.cfg.CompressionLevel)
			if err == nil && len(compressed) < len(raw) {
				stored = compressed
				compression = pkgformat.CompressionDeflate
				flags |= pkgformat.FlagCompressed
			}
		}

		meta := pkgformat.ResourceMetadata{
			ID:           pkgformat.HashName(res.name),
			Type:         res.typ,
			Size:         uint64(len(stored)),
			Name:         res.name,
			Flags:        flags,
			Compression:  compression,
			OriginalSize: originalSize,
			Hash:         pkgformat.ContentHash(stored),
		}
		built = append(built, builtResource{meta: meta, payload: stored})
	}
	return built, nil
}

// writePackage executes write-pipeline steps 1-6 against f.
func writePackage(f *os.File, version uint32, built []builtResource) error {
	header := &pkgformat.ResourcePackageHeader{
		Version:       version,
		ResourceCount: uint32(len(built)),
		CreateTime:    clock.UnixSeconds(),
	}
	copy(header.Magic[:], []byte(pkgformat.Magic))

	// Step 1: header with placeholder total_size/checksum.
	if _, err := f.WriteAt(header.Encode(), 0); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}

	metadataTableOffset := int64(pkgformat.HeaderSize)
	metadataTableSize := int64(len(built)) * int64(pkgformat.MetadataSize)

	// Step 2: metadata table with placeholder offsets.
	if _, err := f.Seek(metadataTableOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	for i := range built {
		if _, err := f.Write(built[i].meta.Encode()); err != nil {
			return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
	}

	// Step 3: write payloads in insertion order, recording offsets.
	payloadStart := metadataTableOffset + metadataTableSize
	if _, err := f.Seek(payloadStart, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	for i := range built {
		pos, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
		built[i].meta.Offset = uint64(pos)
		if _, err := f.Write(built[i].payload); err != nil {
			return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
	}

	// Step 4: final file size.
	totalSize, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	header.TotalSize = uint64(totalSize)

	// Step 5: seek back and rewrite the metadata table with filled offsets.
	if _, err := f.Seek(metadataTableOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	for i := range built {
		if _, err := f.Write(built[i].meta.Encode()); err != nil {
			return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
	}

	// Step 6: read the post-header region back, compute CRC32, patch header.
	tail := make([]byte, totalSize-int64(pkgformat.HeaderSize))
	if _, err := f.ReadAt(tail, int64(pkgformat.HeaderSize)); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	header.Checksum = pkgformat.Checksum(tail)

	if _, err := f.WriteAt(header.Encode(), 0); err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	return nil
}
