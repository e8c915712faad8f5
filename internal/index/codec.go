package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// File layout (little endian):
//
//	magic[8] | version u32 | dim u32 | count u64 | count*dim float32 | crc32 u32
//
// The checksum covers every byte before it.
var magic = [8]byte{'H', 'R', 'A', 'G', 'F', 'L', 'A', 'T'}

const formatVersion uint32 = 1

// ErrCorrupt signals an unreadable or damaged index file.
var ErrCorrupt = errors.New("corrupt index file")

// ErrRowOutOfRange is returned by Flat.Vector for a row the index does not have.
var ErrRowOutOfRange = errors.New("row out of range")

// WriteTo serializes the index.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(bw, crc)

	header := make([]byte, 0, 24)
	header = append(header, magic[:]...)
	header = binary.LittleEndian.AppendUint32(header, formatVersion)
	header = binary.LittleEndian.AppendUint32(header, uint32(f.dim)) //nolint:gosec // dim fits in u32
	header = binary.LittleEndian.AppendUint64(header, uint64(f.Len()))
	if _, err := mw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	if _, err := mw.Write(vectorToBytes(f.data)); err != nil {
		return 0, fmt.Errorf("write vectors: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, crc.Sum32()); err != nil {
		return 0, fmt.Errorf("write checksum: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return int64(len(header) + len(f.data)*4 + 4), nil
}

// ReadFlat deserializes an index written by WriteTo and verifies its checksum.
func ReadFlat(r io.Reader) (*Flat, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(raw) < 28 {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", ErrCorrupt, len(raw))
	}

	body, tail := raw[:len(raw)-4], raw[len(raw)-4:]
	if got, want := crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(tail); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if !bytes.Equal(body[:8], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint32(body[8:12]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, v)
	}
	dim := int(binary.LittleEndian.Uint32(body[12:16]))
	count := binary.LittleEndian.Uint64(body[16:24])
	payload := body[24:]

	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, dim)
	}
	if count > uint64(len(payload)) || uint64(len(payload)) != count*uint64(dim)*4 {
		return nil, fmt.Errorf("%w: payload is %d bytes, header declares %d x %d vectors",
			ErrCorrupt, len(payload), count, dim)
	}

	return &Flat{dim: dim, data: bytesToVector(payload)}, nil
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
