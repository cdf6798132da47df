package extractor

import (
	"regexp"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

// GenericPlatform is reported for URLs no platform pattern matches.
const GenericPlatform = "generic"

type platformPattern struct {
	platform schedulerapi.Platform
	pattern  *regexp.Regexp
}

// patterns are checked in order; the first match wins.
var patterns = []platformPattern{
	{schedulerapi.Platform{ID: "toutiao", Name: "Toutiao", Icon: "📰"}, regexp.MustCompile(`^https?://www\.toutiao\.com/article/`)},
	{schedulerapi.Platform{ID: "wechat", Name: "WeChat Official Accounts", Icon: "💬"}, regexp.MustCompile(`^https?://mp\.weixin\.qq\.com/s/`)},
	{schedulerapi.Platform{ID: "netease", Name: "NetEase News", Icon: "📰"}, regexp.MustCompile(`^https?://www\.163\.com/(news|dy)/article/`)},
	{schedulerapi.Platform{ID: "sohu", Name: "Sohu News", Icon: "📰"}, regexp.MustCompile(`^https?://www\.sohu\.com/a/`)},
	{schedulerapi.Platform{ID: "tencent", Name: "Tencent News", Icon: "📰"}, regexp.MustCompile(`^https?://news\.qq\.com/rain/a/`)},
	{schedulerapi.Platform{ID: "detik", Name: "Detik News", Icon: "🌏"}, regexp.MustCompile(`^https?://news\.detik\.com/`)},
	{schedulerapi.Platform{ID: "naver", Name: "Naver News", Icon: "🇰🇷"}, regexp.MustCompile(`^https?://.*\.naver\.com/`)},
	{schedulerapi.Platform{ID: "lenny", Name: "Lenny's Newsletter", Icon: "📮"}, regexp.MustCompile(`^https?://www\.lennysnewsletter\.com/`)},
	{schedulerapi.Platform{ID: "quora", Name: "Quora", Icon: "❓"}, regexp.MustCompile(`^https?://.*\.quora\.com/`)},
	{schedulerapi.Platform{ID: "bbc", Name: "BBC News", Icon: "🇬🇧"}, regexp.MustCompile(`^https?://www\.bbc\.com/news/articles/`)},
	{schedulerapi.Platform{ID: "cnn", Name: "CNN News", Icon: "🇺🇸"}, regexp.MustCompile(`^https?://(edition\.|www\.)?cnn\.com/\d{4}/\d{2}/\d{2}/`)},
	{schedulerapi.Platform{ID: "twitter", Name: "Twitter/X", Icon: "🐦"}, regexp.MustCompile(`^https?://(?:www\.)?(?:twitter|x)\.com/\w+/status/\d+`)},
}

// DetectPlatform returns the platform id for a URL, or GenericPlatform.
func DetectPlatform(rawURL string) string {
	for _, p := range patterns {
		if p.pattern.MatchString(rawURL) {
			return p.platform.ID
		}
	}
	return GenericPlatform
}

// Platforms lists the platforms with a dedicated URL pattern.
func Platforms() []schedulerapi.Platform {
	out := make([]schedulerapi.Platform, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.platform)
	}
	return out
}
