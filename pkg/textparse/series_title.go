// Package textparse implements the locale-aware series-title parser from
// spec §4.4, grounded on original_source/maoyan_fetcher.py's SEASON_PATTERN
// and original_source/moviepilot_handler.py's smart_subscribe_series.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
)

// chineseNumerals maps the 一..二十 table (plus compound forms like 十一)
// used by "第X季" titles. The spec names the rule but not the table; this
// supplements it in full, per SPEC_FULL.md §3.
var chineseNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"十一": 11, "十二": 12, "十三": 13, "十四": 14, "十五": 15,
	"十六": 16, "十七": 17, "十八": 18, "十九": 19, "二十": 20,
}

var (
	seasonWordRe   = regexp.MustCompile(`(?i)^(.*?)\s+Season\s+(\d+)\s*$`)
	seasonChineseRe = regexp.MustCompile(`^(.*?)\s*[（(]?\s*第\s*([一二三四五六七八九十百]+|\d+)\s*季\s*[)）]?\s*$`)
	trailingYearRe  = regexp.MustCompile(`\b(19|20)\d{2}\b\s*$`)
	trailingNumRe   = regexp.MustCompile(`^(.*\S)\s+(\d{1,2})\s*$`)
)

// Parsed is the result of parsing a display title into a base series name
// and an optional season number.
type Parsed struct {
	BaseName     string
	SeasonNumber *int
}

// ParseSeriesTitleAndSeason applies the deterministic, order-dependent
// rules of §4.4 step "Series title parser":
//  1. trim whitespace
//  2. "... Season N" (case-insensitive) -> strip, season=N
//  3. "... 第X季" (X a Chinese numeral one..twenty, or an arabic numeral)
//     -> strip, season=N
//  4. only if neither matched and the title does not end in a 4-digit
//     year: "... N" at the end -> strip, season=N
//  5. otherwise season=nil
func ParseSeriesTitleAndSeason(title string) Parsed {
	trimmed := strings.TrimSpace(title)

	if m := seasonWordRe.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			base := strings.TrimSpace(m[1])
			return Parsed{BaseName: base, SeasonNumber: &n}
		}
	}

	if m := seasonChineseRe.FindStringSubmatch(trimmed); m != nil {
		base := strings.TrimSpace(m[1])
		raw := m[2]
		var n int
		if v, ok := chineseNumerals[raw]; ok {
			n = v
		} else if v, err := strconv.Atoi(raw); err == nil {
			n = v
		} else {
			return Parsed{BaseName: trimmed}
		}
		return Parsed{BaseName: base, SeasonNumber: &n}
	}

	if !trailingYearRe.MatchString(trimmed) {
		if m := trailingNumRe.FindStringSubmatch(trimmed); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				base := strings.TrimSpace(m[1])
				return Parsed{BaseName: base, SeasonNumber: &n}
			}
		}
	}

	return Parsed{BaseName: trimmed}
}
