package knowledge

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Artifact layout, all integers little-endian uint32:
//
//	magic "KTKB" | version | dimensions | count
//	count × ( text length | UTF-8 text | dimensions × float32 )
const (
	artifactMagic   = "KTKB"
	artifactVersion = 1

	maxDimensions = 1 << 16
	maxPassageLen = 16 << 20
)

// ErrBadArtifact is wrapped by every decoding failure.
var ErrBadArtifact = errors.New("invalid knowledge-base artifact")

// WriteBase encodes base to w.
func WriteBase(w io.Writer, base *Base) error {
	if err := base.Validate(0); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(artifactMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := []uint32{artifactVersion, uint32(base.Dimensions), uint32(len(base.Passages))}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf := make([]byte, base.Dimensions*4)
	for i, text := range base.Passages {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(text))); err != nil {
			return fmt.Errorf("write passage %d length: %w", i, err)
		}
		if _, err := bw.WriteString(text); err != nil {
			return fmt.Errorf("write passage %d: %w", i, err)
		}
		for j, v := range base.Vectors[i] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadBase decodes an artifact from r.
func ReadBase(r io.Reader) (*Base, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(br, magic); err != nil || string(magic) != artifactMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadArtifact)
	}
	var header [3]uint32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadArtifact, err)
	}
	version, dims, count := header[0], header[1], header[2]
	if version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadArtifact, version)
	}
	if dims == 0 || dims > maxDimensions {
		return nil, fmt.Errorf("%w: dimensions %d out of range", ErrBadArtifact, dims)
	}

	base := &Base{Dimensions: int(dims)}
	buf := make([]byte, dims*4)
	for i := uint32(0); i < count; i++ {
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: passage %d length: %v", ErrBadArtifact, i, err)
		}
		if n > maxPassageLen {
			return nil, fmt.Errorf("%w: passage %d length %d too large", ErrBadArtifact, i, n)
		}
		text := make([]byte, n)
		if _, err := io.ReadFull(br, text); err != nil {
			return nil, fmt.Errorf("%w: passage %d: %v", ErrBadArtifact, i, err)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: vector %d: %v", ErrBadArtifact, i, err)
		}
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		base.Passages = append(base.Passages, string(text))
		base.Vectors = append(base.Vectors, vec)
	}
	return base, nil
}

// Save writes base to path atomically. The directory is created if needed.
func Save(path string, base *Base) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kb-*")
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteBase(tmp, base); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact file: %w", err)
	}
	return nil
}

// Open reads the artifact at path.
func Open(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	base, err := ReadBase(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base, nil
}
