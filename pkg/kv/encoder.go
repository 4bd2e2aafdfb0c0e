package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
)

func encodeCrossSection(cross *mwm.CrossSection) ([]byte, error) {
	bb, err := binary.Marshal(cross)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func loadCrossSection(bbCompressed []byte) (*mwm.CrossSection, error) {
	bb, err := decompress(bbCompressed)
	if err != nil {
		return nil, err
	}
	var cross mwm.CrossSection
	if err := binary.Unmarshal(bb, &cross); err != nil {
		return nil, err
	}
	return &cross, nil
}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}
	return bb, nil
}
