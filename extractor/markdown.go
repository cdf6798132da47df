package extractor

import (
	"fmt"
	"strings"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

// ToMarkdown renders an extracted article as Markdown: title, byline, body
// in content order, then a media appendix.
func ToMarkdown(item *schedulerapi.NewsItem, platform string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", item.Title)

	b.WriteString("## Article info\n\n")
	if platform != "" && platform != GenericPlatform {
		fmt.Fprintf(&b, "**Platform**: %s  \n", platform)
	}
	if item.MetaInfo.AuthorName != "" {
		if item.MetaInfo.AuthorURL != "" {
			fmt.Fprintf(&b, "**Author**: [%s](%s)  \n", item.MetaInfo.AuthorName, item.MetaInfo.AuthorURL)
		} else {
			fmt.Fprintf(&b, "**Author**: %s  \n", item.MetaInfo.AuthorName)
		}
	}
	if item.MetaInfo.PublishTime != "" {
		fmt.Fprintf(&b, "**Published**: %s  \n", item.MetaInfo.PublishTime)
	}
	fmt.Fprintf(&b, "**Source**: [%s](%s)\n\n", item.NewsURL, item.NewsURL)
	b.WriteString("---\n\n")

	b.WriteString("## Content\n\n")
	for _, c := range item.Contents {
		switch c.Type {
		case schedulerapi.ContentText:
			fmt.Fprintf(&b, "%s\n\n", c.Content)
		case schedulerapi.ContentImage:
			alt := c.Desc
			if alt == "" {
				alt = "image"
			}
			fmt.Fprintf(&b, "![%s](%s)\n\n", alt, c.Content)
		case schedulerapi.ContentVideo:
			fmt.Fprintf(&b, "[video](%s)\n\n", c.Content)
		}
	}

	if len(item.Images) > 0 || len(item.Videos) > 0 {
		b.WriteString("---\n\n## Media\n")
		if len(item.Images) > 0 {
			fmt.Fprintf(&b, "\n### Images (%d)\n\n", len(item.Images))
			for i, img := range item.Images {
				fmt.Fprintf(&b, "%d. %s\n", i+1, img)
			}
		}
		if len(item.Videos) > 0 {
			fmt.Fprintf(&b, "\n### Videos (%d)\n\n", len(item.Videos))
			for i, v := range item.Videos {
				fmt.Fprintf(&b, "%d. %s\n", i+1, v)
			}
		}
	}
	return b.String()
}
