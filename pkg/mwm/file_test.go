package mwm

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
small region "solo":

	1 ---e10--- 2 ---e11--- 3 (border to "klaten" junction 7)
	            |
	           e12 (zero mask, pruned)
	            |
	            4

cars may not turn from e10 into e11 at 2.
*/
func soloRegion() *RegionData {
	return &RegionData{
		Cross: CrossSection{
			Region: "solo",
			Borders: []BorderJunction{
				{JunctionID: 3, MatchedRegion: "klaten", MatchedJunctionID: 7, Coordinate: datastructure.NewCoordinate(-7.56, 110.84)},
			},
			Leaps: []LeapTable{{Profile: "car/time", Leaps: []Leap{{From: 3, To: 3}}}},
		},
		Junctions: []Junction{
			{ID: 3, Coordinate: datastructure.NewCoordinate(-7.56, 110.84)},
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.56, 110.82)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.56, 110.83)},
			{ID: 4, Coordinate: datastructure.NewCoordinate(-7.57, 110.83)},
		},
		Segments: []SegmentRecord{
			{EdgeID: 11, From: 2, To: 3, LengthMeters: 1103, Mask: datastructure.CarMask, Class: datastructure.RoadClassPrimary},
			{EdgeID: 10, From: 1, To: 2, LengthMeters: 1103, Mask: datastructure.AllVehiclesMask, Class: datastructure.RoadClassResidential,
				Geometry: []datastructure.Coordinate{{Lat: -7.5601, Lon: 110.825}}},
			{EdgeID: 12, From: 2, To: 4, LengthMeters: 1106, Mask: 0},
		},
		Restrictions: []Restriction{
			{Kind: RestrictionNo, FromEdge: 10, Via: 2, ToEdge: 12, Mask: datastructure.CarMask},
			{Kind: RestrictionNo, FromEdge: 10, Via: 2, ToEdge: 11, Mask: datastructure.CarMask},
		},
	}
}

func TestNormalizePrunesZeroMask(t *testing.T) {
	data := soloRegion()
	pruned := data.Normalize()
	assert.Equal(t, 1, pruned)
	assert.Len(t, data.Segments, 2)
	assert.Equal(t, uint32(10), data.Segments[0].EdgeID)
	assert.Equal(t, uint32(1), data.Junctions[0].ID)
	// the restriction into the pruned edge goes with it
	require.Len(t, data.Restrictions, 1)
	assert.Equal(t, uint32(11), data.Restrictions[0].ToEdge)
	assert.False(t, data.Cross.Bounds.IsEmpty())
	assert.True(t, data.Cross.Bounds.Contains(datastructure.NewCoordinate(-7.565, 110.83)))
	assert.NoError(t, data.Validate())
}

func TestValidateUnknownJunction(t *testing.T) {
	data := soloRegion()
	data.Segments = append(data.Segments, SegmentRecord{EdgeID: 20, From: 1, To: 99, Mask: datastructure.CarMask})
	assert.ErrorIs(t, data.Validate(), ErrUnknownJunction)

	data = soloRegion()
	data.Segments[0].EdgeID = datastructure.FakeIDStart + 1
	assert.ErrorIs(t, data.Validate(), ErrBadRegionFile)
}

func TestValidateRestrictions(t *testing.T) {
	data := soloRegion()
	data.Normalize()
	require.NoError(t, data.Validate())

	data.Restrictions[0].Via = 3
	assert.ErrorIs(t, data.Validate(), ErrBadRegionFile)

	data = soloRegion()
	data.Normalize()
	data.Restrictions[0].Kind = 0
	assert.ErrorIs(t, data.Validate(), ErrBadRegionFile)

	data = soloRegion()
	data.Normalize()
	data.Restrictions[0].ToEdge = 77
	assert.ErrorIs(t, data.Validate(), ErrBadRegionFile)
}

func TestEncodeDecodeRegion(t *testing.T) {
	data := soloRegion()
	data.Normalize()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, data))

	cross, err := DecodeCrossSection(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "solo", cross.Region)
	assert.Len(t, cross.Borders, 1)
	leaps, ok := cross.LeapTable("car/time")
	assert.True(t, ok)
	assert.Len(t, leaps, 1)

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, decoded.Segments, len(data.Segments))
	for i, s := range data.Segments {
		got := decoded.Segments[i]
		assert.Equal(t, s.EdgeID, got.EdgeID)
		assert.Equal(t, s.From, got.From)
		assert.Equal(t, s.To, got.To)
		assert.Equal(t, s.Attributes(), got.Attributes())
		assert.Len(t, got.Geometry, len(s.Geometry))
	}
	assert.Equal(t, data.Junctions, decoded.Junctions)
	assert.Equal(t, data.Restrictions, decoded.Restrictions)

	_, err = Decode(bytes.NewReader([]byte("XXXX0000")))
	assert.ErrorIs(t, err, ErrBadRegionFile)
}

func TestDirSource(t *testing.T) {
	ctx := context.Background()
	src := NewDirSource(filepath.Join(t.TempDir(), "maps"))
	require.NoError(t, src.Write(soloRegion()))

	assert.True(t, src.Exists("solo"))
	assert.False(t, src.Exists("klaten"))
	names, err := src.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, names)

	reader, err := src.Open(ctx, "solo")
	require.NoError(t, err)
	count := 0
	require.NoError(t, reader.ListSegments(func(s SegmentRecord) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)

	c, err := reader.GetJunctionCoordinate(2)
	require.NoError(t, err)
	assert.Equal(t, datastructure.NewCoordinate(-7.56, 110.83), c)
	_, err = reader.GetJunctionCoordinate(42)
	assert.ErrorIs(t, err, ErrUnknownJunction)

	_, err = src.Open(ctx, "klaten")
	assert.ErrorIs(t, err, ErrRegionFileNotFound)
	_, err = src.OpenCrossSection(ctx, "klaten")
	assert.ErrorIs(t, err, ErrRegionFileNotFound)

	require.NoError(t, src.Delete("solo"))
	assert.False(t, src.Exists("solo"))
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource()
	_, err := src.Open(ctx, "solo")
	assert.ErrorIs(t, err, ErrRegionFileNotFound)

	src.Put(soloRegion())
	reader, err := src.Open(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, "solo", reader.Name())

	borders := 0
	require.NoError(t, reader.ListBorderJunctions(func(b BorderJunction) error {
		borders++
		assert.Equal(t, "klaten", b.MatchedRegion)
		return nil
	}))
	assert.Equal(t, 1, borders)

	src.Delete("solo")
	assert.False(t, src.Exists("solo"))
}
