package metadatasync

// countryNames is the static origin_country translation table (§4.5
// step 3 "origin_country translated via a language map"). Immutable
// after process start per the design notes on shared-resource policy;
// unknown codes pass through unchanged.
var countryNames = map[string]string{
	"US": "美国",
	"GB": "英国",
	"CN": "中国",
	"HK": "中国香港",
	"TW": "中国台湾",
	"JP": "日本",
	"KR": "韩国",
	"FR": "法国",
	"DE": "德国",
	"CA": "加拿大",
	"AU": "澳大利亚",
	"IN": "印度",
	"ES": "西班牙",
	"IT": "意大利",
	"RU": "俄罗斯",
}

func translateCountries(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if name, ok := countryNames[c]; ok {
			out = append(out, name)
			continue
		}
		out = append(out, c)
	}
	return out
}
