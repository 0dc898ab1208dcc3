package metadatasync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

func TestBuildAssetDetailPrefersFilenameDetection(t *testing.T) {
	item := mediaserver.Item{
		ID: "e1", Path: "/media/Movie.2021.2160p.HDR.x265-GROUP.mkv", Container: "mkv", Size: 1000,
		MediaStreams: []mediaserver.MediaStream{
			{Type: "Video", Codec: "hevc", Width: 1920, Height: 1080, VideoRange: "SDR"},
			{Type: "Audio", Codec: "dts", Language: "eng", Channels: 6},
			{Type: "Subtitle", Codec: "srt", Language: "eng", IsForced: true},
		},
	}

	d := buildAssetDetail(item)
	assert.Equal(t, structures.Resolution4K, d.Resolution)
	assert.NotEmpty(t, d.HDR)
	assert.Equal(t, "GROUP", d.ReleaseGroup)
	require.Len(t, d.AudioTracks, 1)
	require.Len(t, d.Subtitles, 1)
	assert.True(t, d.Subtitles[0].Forced)
}

func TestBuildAssetDetailFallsBackToStreamMetadata(t *testing.T) {
	item := mediaserver.Item{
		ID: "e2", Path: "/media/plain-filename.mkv",
		MediaStreams: []mediaserver.MediaStream{
			{Type: "Video", Codec: "h264", Width: 1920, Height: 1080, VideoRange: "HDR10", VideoRangeType: "HDR10"},
		},
	}

	d := buildAssetDetail(item)
	assert.Equal(t, structures.Resolution1080p, d.Resolution)
	assert.NotEmpty(t, d.HDR)
}

func TestBuildAssetDetailsMapsEveryVersion(t *testing.T) {
	versions := []mediaserver.Item{{ID: "a"}, {ID: "b"}}
	details := buildAssetDetails(versions)
	assert.Len(t, details, 2)
}
