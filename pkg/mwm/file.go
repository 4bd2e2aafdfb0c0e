package mwm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kelindar/binary"
	"github.com/lintang-b-s/mwmrouter/pkg/storage"
	"github.com/lintang-b-s/mwmrouter/pkg/storage/disk"
)

/*
region file layout:

	| len | magic "MWMR" | version | len | cross section | len | zstd(body) |
	 4 byte    4 byte       4 byte  4 byte                4 byte

the cross section (name, bounds, border junctions, leaps) can be read
without touching the body (junction coordinates, segment records, turn restrictions).
*/

type regionBody struct {
	Junctions    []Junction
	Segments     []SegmentRecord
	Restrictions []Restriction
}

// Encode writes data in the region file format.
func Encode(w io.Writer, data *RegionData) error {
	header := disk.NewPage(headerSize)
	n := header.PutString(0, storage.REGION_FILE_MAGIC)
	header.PutInt(int32(n), storage.REGION_FILE_VERSION)
	if _, err := w.Write(header.Contents()); err != nil {
		return err
	}

	cross, err := binary.Marshal(data.Cross)
	if err != nil {
		return fmt.Errorf("encode cross section of %s: %w", data.Cross.Region, err)
	}
	if err := disk.WriteSection(w, cross); err != nil {
		return err
	}

	body, err := binary.Marshal(regionBody{Junctions: data.Junctions, Segments: data.Segments, Restrictions: data.Restrictions})
	if err != nil {
		return fmt.Errorf("encode body of %s: %w", data.Cross.Region, err)
	}
	compressed, err := disk.CompressBytes(body)
	if err != nil {
		return err
	}
	return disk.WriteSection(w, compressed)
}

const headerSize = 4 + len(storage.REGION_FILE_MAGIC) + 4

func readHeader(r io.Reader) error {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	page := disk.NewPageFromByteSlice(buf[:])
	magic, err := page.GetString(0)
	if err != nil || magic != storage.REGION_FILE_MAGIC {
		return fmt.Errorf("%w: bad magic", ErrBadRegionFile)
	}
	if v := page.GetInt(int32(headerSize - 4)); v != storage.REGION_FILE_VERSION {
		return fmt.Errorf("%w: unsupported version %d", ErrBadRegionFile, v)
	}
	return nil
}

// DecodeCrossSection reads only the cross section of a region file.
func DecodeCrossSection(r io.Reader) (*CrossSection, error) {
	if err := readHeader(r); err != nil {
		return nil, err
	}
	raw, err := disk.ReadSection(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	var cross CrossSection
	if err := binary.Unmarshal(raw, &cross); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	return &cross, nil
}

// Decode reads a whole region file.
func Decode(r io.Reader) (*RegionData, error) {
	cross, err := DecodeCrossSection(r)
	if err != nil {
		return nil, err
	}
	compressed, err := disk.ReadSection(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	raw, err := disk.DecompressBytes(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	var body regionBody
	if err := binary.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRegionFile, err)
	}
	return &RegionData{
		Cross:        *cross,
		Junctions:    body.Junctions,
		Segments:     body.Segments,
		Restrictions: body.Restrictions,
	}, nil
}

// WriteFile normalizes, validates and writes data to path.
func WriteFile(path string, data *RegionData) error {
	data.Normalize()
	if err := data.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, data); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadFile(path string) (*RegionData, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRegionFileNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

func ReadCrossSectionFile(path string) (*CrossSection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRegionFileNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return DecodeCrossSection(bufio.NewReader(f))
}
