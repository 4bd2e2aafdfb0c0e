package disk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/lintang-b-s/mwmrouter/pkg/storage"
)

var ErrCorruptedPage = errors.New("corrupted page")

// Page . a growable byte buffer with length prefixed fields. Region files are
// written as a sequence of pages.
type Page struct {
	bb *bytes.Buffer
}

func NewPage(blockSize int) *Page {
	bb := bytes.NewBuffer(make([]byte, blockSize))
	return &Page{bb}
}

func NewPageFromByteSlice(b []byte) *Page {
	return &Page{bytes.NewBuffer(b)}
}

func (p *Page) grow(size int) {
	if size > p.bb.Len() {
		p.bb.Write(make([]byte, size-p.bb.Len()))
	}
}

func (p *Page) GetInt(offset int32) int32 {
	return int32(binary.LittleEndian.Uint32(p.bb.Bytes()[offset:]))
}

// PutInt. set int at offset, growing the page if needed.
func (p *Page) PutInt(offset int32, val int32) {
	p.grow(int(offset) + 4)
	binary.LittleEndian.PutUint32(p.bb.Bytes()[offset:], uint32(val))
}

// GetBytes. the length is stored in the first 4 bytes at offset.
func (p *Page) GetBytes(offset int32) ([]byte, error) {
	if int(offset)+4 > p.bb.Len() {
		return nil, ErrCorruptedPage
	}
	length := p.GetInt(offset)
	if length < 0 || int(offset)+4+int(length) > p.bb.Len() {
		return nil, ErrCorruptedPage
	}
	b := make([]byte, length)
	copy(b, p.bb.Bytes()[offset+4:offset+4+length])
	return b, nil
}

// PutBytes. set length + bytes at offset, returns the number of bytes written.
func (p *Page) PutBytes(offset int32, b []byte) int {
	p.grow(int(offset) + len(b) + 4)
	p.PutInt(offset, int32(len(b)))
	copy(p.bb.Bytes()[offset+4:], b)
	return len(b) + 4
}

func (p *Page) GetString(offset int32) (string, error) {
	b, err := p.GetBytes(offset)
	return string(b), err
}

func (p *Page) PutString(offset int32, s string) int {
	return p.PutBytes(offset, []byte(s))
}

func (p *Page) Contents() []byte {
	return p.bb.Bytes()
}

func (p *Page) Len() int {
	return p.bb.Len()
}

// Compress replaces the page contents with zstd(contents).
func (p *Page) Compress() error {
	compressed, err := CompressBytes(p.Contents())
	if err != nil {
		return err
	}
	p.bb.Reset()
	p.bb.Write(compressed)
	return nil
}

// Decompress reverses Compress.
func (p *Page) Decompress() error {
	raw, err := DecompressBytes(p.Contents())
	if err != nil {
		return err
	}
	p.bb.Reset()
	p.bb.Write(raw)
	return nil
}

func CompressBytes(in []byte) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(in)/2+64))
	encoder, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := io.Copy(encoder, bytes.NewReader(in)); err != nil {
		encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func DecompressBytes(in []byte) ([]byte, error) {
	d, err := zstd.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	out := bytes.NewBuffer(make([]byte, 0, storage.MAX_PAGE_SIZE))
	if _, err := io.Copy(out, d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedPage, err)
	}
	return out.Bytes(), nil
}

// WriteSection writes a 4 byte length followed by b.
func WriteSection(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadSection reads one section written by WriteSection.
func ReadSection(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedPage, err)
	}
	return b, nil
}
