package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// PageType classifies the page a section was extracted from.
// The retrieval reranker boosts some page types over others.
type PageType string

// Known page types.
const (
	PageTypeFAQ           PageType = "faq"
	PageTypeService       PageType = "service"
	PageTypeBlog          PageType = "blog"
	PageTypeInformational PageType = "informational"
	PageTypeUnknown       PageType = "unknown"
)

// informationalMinChars is the text length above which keyword matches
// mark a page as informational.
const informationalMinChars = 800

var (
	informationalKeywords = []string{"about", "company", "mission", "locations"}
	datedPathPattern      = regexp.MustCompile(`/\d{4}(/|-)`)
)

// IsValid returns true if the page type is recognised.
func (p PageType) IsValid() bool {
	switch p {
	case PageTypeFAQ, PageTypeService, PageTypeBlog, PageTypeInformational, PageTypeUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p PageType) String() string {
	return string(p)
}

// ParsePageType returns the page type named by s, or PageTypeUnknown.
func ParsePageType(s string) PageType {
	p := PageType(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return PageTypeUnknown
	}
	return p
}

// InferPageType classifies a page from its URL path, title and text.
// Rules are checked in order: faq, service, blog, informational.
func InferPageType(rawURL, title, text string) PageType {
	path := "/"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)
	titleLower := strings.ToLower(title)

	switch {
	case strings.Contains(path, "/faq") || strings.Contains(titleLower, "faq"):
		return PageTypeFAQ
	case strings.Contains(path, "/services") || strings.Contains(titleLower, "service"):
		return PageTypeService
	case strings.Contains(path, "/blog") || strings.Contains(titleLower, "blog"):
		return PageTypeBlog
	case datedPathPattern.MatchString(path):
		return PageTypeBlog
	}

	if len(strings.TrimSpace(text)) > informationalMinChars {
		textLower := strings.ToLower(text)
		for _, kw := range informationalKeywords {
			if strings.Contains(textLower, kw) {
				return PageTypeInformational
			}
		}
	}

	return PageTypeUnknown
}
