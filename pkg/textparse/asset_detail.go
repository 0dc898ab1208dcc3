package textparse

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	resolution4kRe    = regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`)
	resolution1080pRe = regexp.MustCompile(`(?i)\b1080p\b`)
	resolution720pRe  = regexp.MustCompile(`(?i)\b720p\b`)
	resolution480pRe  = regexp.MustCompile(`(?i)\b480p\b`)

	qualityRemuxRe  = regexp.MustCompile(`(?i)\bremux\b`)
	qualityBluRayRe = regexp.MustCompile(`(?i)\b(blu-?ray|bdrip|bd)\b`)
	qualityWebDLRe  = regexp.MustCompile(`(?i)\bweb-?dl\b`)
	qualityWebripRe = regexp.MustCompile(`(?i)\bwebrip\b`)
	qualityHDTVRe   = regexp.MustCompile(`(?i)\bhdtv\b`)
	qualityDVDripRe = regexp.MustCompile(`(?i)\bdvdrip\b`)

	hdrDoviP5Re  = regexp.MustCompile(`(?i)\bdv\.?p5\b|dolby[\s.]*vision[\s.]*p5`)
	hdrDoviP7Re  = regexp.MustCompile(`(?i)\bdv\.?p7\b|dolby[\s.]*vision[\s.]*p7`)
	hdrDoviP8Re  = regexp.MustCompile(`(?i)\bdv\.?p8\b|dolby[\s.]*vision[\s.]*p8`)
	hdrDoviRe    = regexp.MustCompile(`(?i)\b(dovi|dolby[\s.]*vision|\bdv\b)\b`)
	hdrPlusRe    = regexp.MustCompile(`(?i)hdr10\+|hdr10plus`)
	hdrBaseRe    = regexp.MustCompile(`(?i)\bhdr10\b|\bhdr\b`)

	// releaseGroupRe matches a trailing "-GROUP" tag on a release
	// filename, the conventional scene/P2P suffix position.
	releaseGroupRe = regexp.MustCompile(`-([A-Za-z0-9]+)\s*$`)
)

// DetectResolution classifies a filename into a coarse resolution tier by
// regex, the filename-based pass of the §3 "strict priority" rule. An
// empty string means the filename gave no signal; callers fall back to
// stream-metadata width/height.
func DetectResolution(filename string) string {
	switch {
	case resolution4kRe.MatchString(filename):
		return "4k"
	case resolution1080pRe.MatchString(filename):
		return "1080p"
	case resolution720pRe.MatchString(filename):
		return "720p"
	case resolution480pRe.MatchString(filename):
		return "480p"
	default:
		return ""
	}
}

// ResolutionFromDimensions is the stream-metadata fallback used when
// DetectResolution finds no filename signal.
func ResolutionFromDimensions(width, height int) string {
	longEdge := width
	if height > longEdge {
		longEdge = height
	}
	switch {
	case longEdge >= 3800:
		return "4k"
	case longEdge >= 1900:
		return "1080p"
	case longEdge >= 1260:
		return "720p"
	case longEdge > 0:
		return "480p"
	default:
		return ""
	}
}

// DetectQuality classifies a filename's source-quality tag by regex.
func DetectQuality(filename string) string {
	switch {
	case qualityRemuxRe.MatchString(filename):
		return "Remux"
	case qualityBluRayRe.MatchString(filename):
		return "BluRay"
	case qualityWebDLRe.MatchString(filename):
		return "WEB-DL"
	case qualityWebripRe.MatchString(filename):
		return "WEBrip"
	case qualityHDTVRe.MatchString(filename):
		return "HDTV"
	case qualityDVDripRe.MatchString(filename):
		return "DVDrip"
	default:
		return ""
	}
}

// DetectHDR classifies a filename's dynamic-range tag by regex, checked
// before any VideoRange/VideoRangeType stream fallback.
func DetectHDR(filename string) string {
	switch {
	case hdrDoviP5Re.MatchString(filename):
		return "dovi_p5"
	case hdrDoviP7Re.MatchString(filename):
		return "dovi_p7"
	case hdrDoviP8Re.MatchString(filename):
		return "dovi_p8"
	case hdrDoviRe.MatchString(filename):
		return "other"
	case hdrPlusRe.MatchString(filename):
		return "hdr10+"
	case hdrBaseRe.MatchString(filename):
		return "hdr"
	default:
		return ""
	}
}

// HDRFromStream maps a stream's VideoRange/VideoRangeType fields to the
// same tag vocabulary, used when the filename gave no HDR signal.
func HDRFromStream(videoRange, videoRangeType string) string {
	combined := strings.ToLower(videoRange + " " + videoRangeType)
	switch {
	case strings.Contains(combined, "dovi") || strings.Contains(combined, "dolby vision"):
		return "other"
	case strings.Contains(combined, "hdr10+"):
		return "hdr10+"
	case strings.Contains(combined, "hdr"):
		return "hdr"
	default:
		return "sdr"
	}
}

// DetectReleaseGroup extracts a trailing "-GROUP" tag from a filename's
// base name, empty if none is present.
func DetectReleaseGroup(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := releaseGroupRe.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return ""
}
