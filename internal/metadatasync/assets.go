package metadatasync

import (
	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/pkg/structures"
	"github.com/kestrelmedia/archivist/pkg/textparse"
)

// buildAssetDetail extracts one version's asset detail from a single
// Media-Server item, filename-based detection taking strict priority
// over stream-metadata fallback (§3 "Per-Version Asset Details").
func buildAssetDetail(item mediaserver.Item) structures.AssetDetail {
	d := structures.AssetDetail{
		EmbyItemID: item.ID,
		Path:       item.Path,
		Container:  item.Container,
		SizeBytes:  item.Size,
	}

	var videoStream, hdrStream mediaserver.MediaStream
	var hasVideo bool
	for _, s := range item.MediaStreams {
		switch s.Type {
		case "Video":
			if !hasVideo {
				videoStream = s
				hdrStream = s
				hasVideo = true
			}
			d.VideoCodec = s.Codec
			d.BitDepth = s.BitDepth
			d.FrameRate = s.RealFrameRate
		case "Audio":
			d.AudioTracks = append(d.AudioTracks, structures.AudioTrack{
				Codec: s.Codec, Language: s.Language, Channels: s.Channels, Title: s.Title,
			})
		case "Subtitle":
			d.Subtitles = append(d.Subtitles, structures.SubtitleTrack{
				Codec: s.Codec, Language: s.Language, Forced: s.IsForced,
			})
		}
	}

	res := textparse.DetectResolution(item.Path)
	if res == "" && hasVideo {
		res = textparse.ResolutionFromDimensions(videoStream.Width, videoStream.Height)
	}
	d.Resolution = structures.ResolutionTier(res)

	d.Quality = structures.QualityTag(textparse.DetectQuality(item.Path))

	hdr := textparse.DetectHDR(item.Path)
	if hdr == "" {
		hdr = textparse.HDRFromStream(hdrStream.VideoRange, hdrStream.VideoRangeType)
	}
	d.HDR = structures.HDREffect(hdr)

	d.ReleaseGroup = textparse.DetectReleaseGroup(item.Path)

	return d
}

// buildAssetDetails maps buildAssetDetail over every version of one
// top-level item.
func buildAssetDetails(versions []mediaserver.Item) []structures.AssetDetail {
	out := make([]structures.AssetDetail, 0, len(versions))
	for _, v := range versions {
		out = append(out, buildAssetDetail(v))
	}
	return out
}

// sumAssetBytes totals SizeBytes across a set of asset details, for the
// sync job's human-readable progress summary.
func sumAssetBytes(details []structures.AssetDetail) int64 {
	var total int64
	for _, d := range details {
		total += d.SizeBytes
	}
	return total
}
