package content

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ExtractFeedText renders an RSS, Atom or JSON feed as text: the feed title
// followed by the title, link and description of every item, so that new or
// edited entries show up as changed lines.
func ExtractFeedText(body string) (string, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse feed: %w", err)
	}

	var b strings.Builder
	b.WriteString(feed.Title + "\n")
	for _, item := range feed.Items {
		b.WriteString(item.Title + "\n")
		b.WriteString(item.Link + "\n")
		if item.Description != "" {
			// Descriptions are frequently HTML fragments.
			desc, err := ExtractVisibleText(item.Description)
			if err != nil {
				desc = item.Description
			}
			b.WriteString(desc + "\n")
		}
	}

	return b.String(), nil
}
