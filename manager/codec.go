package manager

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/CognotEngine/amberpipeline/pkgformat"
)

// decompress dispatches on meta.Compression to produce the resident
// payload from the stored bytes. NONE and DEFLATE are mandatory;
// LZ4/ZSTD/BC7/ASTC are recognized stubs that answer
// ErrUnsupportedCodec, matching the source's stub decompressors.
func decompress(stored []byte, meta *pkgformat.ResourceMetadata) ([]byte, error) {
	switch meta.Compression {
	case pkgformat.CompressionNone:
		out := make([]byte, len(stored))
		copy(out, stored)
		return out, nil

	case pkgformat.CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(stored))
		defer r.Close()
		out := make([]byte, meta.OriginalSize)
		n, err := io.ReadFull(r, out)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: fmt.Errorf("%w: %v", pkgformat.ErrDecompress, err)}
		}
		if uint64(n) != meta.OriginalSize {
			return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: fmt.Errorf("%w: got %d bytes, want %d", pkgformat.ErrDecompress, n, meta.OriginalSize)}
		}
		// Confirm the stream is exhausted at end-of-stream, not merely
		// that we read the expected number of bytes.
		var probe [1]byte
		extra, perr := r.Read(probe[:])
		if extra != 0 {
			return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: fmt.Errorf("%w: trailing data after expected end of stream", pkgformat.ErrDecompress)}
		}
		if perr != io.EOF {
			return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: fmt.Errorf("%w: stream did not terminate cleanly: %v", pkgformat.ErrDecompress, perr)}
		}
		return out, nil

	case pkgformat.CompressionLZ4, pkgformat.CompressionZSTD, pkgformat.CompressionBC7, pkgformat.CompressionASTC:
		return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: pkgformat.ErrUnsupportedCodec}

	default:
		return nil, &pkgformat.CodecError{Codec: meta.Compression, Err: pkgformat.ErrUnknownCodec}
	}
}
