package app

import (
	"strings"
	"unicode/utf8"

	"wellness-sessions/internal/model"
)

const (
	maxTitleLength      = 200
	maxTagLength        = 50
	maxPayloadURLLength = 2048
)

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title", "must be at most 200 characters")
	}
	return title, nil
}

func normalizeTags(raw []string) (model.Tags, error) {
	tags := make(model.Tags, 0, len(raw))
	for _, t := range raw {
		tag := strings.TrimSpace(t)
		if tag == "" {
			return nil, invalid("tags", "must not contain empty values")
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			return nil, invalid("tags", "each tag must be at most 50 characters")
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func normalizePayloadURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if len(url) > maxPayloadURLLength {
		return "", invalid("payload_url", "must be at most 2048 characters")
	}
	return url, nil
}

// checkPublishable enforces: published => title and payload URL are non-empty.
func checkPublishable(s *model.Session) error {
	if strings.TrimSpace(s.Title) == "" {
		return invalid("title", "is required to publish")
	}
	if strings.TrimSpace(s.PayloadURL) == "" {
		return invalid("payload_url", "is required to publish")
	}
	return nil
}
