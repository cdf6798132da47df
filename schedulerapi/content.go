package schedulerapi

import (
	"encoding/json"
	"fmt"
)

// ContentType tags a ContentItem.
type ContentType string

// Content item kinds.
const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

// Valid reports whether t is one of the known content kinds.
func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentImage, ContentVideo:
		return true
	}
	return false
}

// ContentItem is one block of an extracted article body. Content holds the
// paragraph text for text items and the media URL for image and video items.
type ContentItem struct {
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
	Desc    string      `json:"desc"`
}

// UnmarshalJSON rejects content items with an unknown type tag.
func (c *ContentItem) UnmarshalJSON(data []byte) error {
	type plain ContentItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown content type %q", p.Type)
	}
	*c = ContentItem(p)
	return nil
}

// NewsMetaInfo holds the byline of an extracted article.
type NewsMetaInfo struct {
	AuthorName  string `json:"author_name"`
	AuthorURL   string `json:"author_url"`
	PublishTime string `json:"publish_time"`
}

// NewsItem is a fully extracted article.
type NewsItem struct {
	Title    string        `json:"title"`
	NewsURL  string        `json:"news_url"`
	NewsID   string        `json:"news_id"`
	MetaInfo NewsMetaInfo  `json:"meta_info"`
	Contents []ContentItem `json:"contents"`
	Texts    []string      `json:"texts"`
	Images   []string      `json:"images"`
	Videos   []string      `json:"videos"`
}

// Output formats accepted by the extract endpoint.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ExtractRequest asks the backend to extract a single article.
type ExtractRequest struct {
	URL               string `json:"url"`
	OutputFormat      string `json:"output_format"`
	Platform          string `json:"platform,omitempty"`
	Cookie            string `json:"cookie,omitempty"`
	EmbedImages       bool   `json:"embed_images,omitempty"`
	SaveImagesLocally bool   `json:"save_images_locally,omitempty"`
}

// ExtractError describes a failed extraction.
type ExtractError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractResponse is the extraction envelope.
type ExtractResponse struct {
	Status      string        `json:"status"`
	Data        *NewsItem     `json:"data,omitempty"`
	Markdown    string        `json:"markdown,omitempty"`
	Platform    string        `json:"platform,omitempty"`
	ExtractedAt string        `json:"extracted_at"`
	ImagesDir   string        `json:"images_dir,omitempty"`
	Error       *ExtractError `json:"error,omitempty"`
}

// Platform is a site the extractor has dedicated support for.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// PlatformsResponse wraps the platform list.
type PlatformsResponse struct {
	Status    string     `json:"status"`
	Platforms []Platform `json:"platforms"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
