package wire

import (
	"bytes"
	"compress/zlib"
	"io"
)

// defaultCompressionThreshold is the payload size above which compression
// is attempted at all when a session doesn't override it; below it the
// overhead of the zlib header/footer would outweigh any savings.
const defaultCompressionThreshold = 100

// compressionLevel matches the low compression level the reference traces
// use: cheap CPU cost for a per-datagram operation on a hot path.
const compressionLevel = 2

// tryCompress compresses data and returns the compressed form only if it is
// strictly shorter; otherwise it returns the original slice and false.
// threshold <= 0 falls back to defaultCompressionThreshold.
func tryCompress(data []byte, threshold int) ([]byte, bool) {
	if threshold <= 0 {
		threshold = defaultCompressionThreshold
	}
	if len(data) < threshold {
		return data, false
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return data, false
	}
	if _, err := w.Write(data); err != nil {
		return data, false
	}
	if err := w.Close(); err != nil {
		return data, false
	}
	if buf.Len() >= len(data) {
		return data, false
	}
	return buf.Bytes(), true
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
