package packer

import (
	"bytes"

	"github.com/klauspost/compress/flate"
)

// deflate compresses data at the given level (1-9) using
// klauspost/compress's flate implementation, the pack-wide convention
// for DEFLATE-family codecs (see meigma-blob, rxanders35-graphene).
//
// LZ4 is a recognized but unimplemented codec at pack time: the
// Manager answers ErrUnsupportedCodec for it, so the packer never
// needs to produce it. github.com/pierrec/lz4/v4 is the designated
// library should that change.
func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
