package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Extractor turns an HTML document into raw (not yet normalized) text.
type Extractor interface {
	ExtractText(htmlContent, pageURL string) (string, error)
}

// VisibleTextExtractor keeps every text node of the document except those
// inside script, style and noscript elements.
type VisibleTextExtractor struct{}

// NewVisibleTextExtractor creates the default extractor
func NewVisibleTextExtractor() *VisibleTextExtractor {
	return &VisibleTextExtractor{}
}

// ExtractText implements Extractor
func (e *VisibleTextExtractor) ExtractText(htmlContent, _ string) (string, error) {
	return ExtractVisibleText(htmlContent)
}

// ExtractVisibleText parses HTML with goquery, drops non-visible elements and
// returns the concatenated text of what is left.
func ExtractVisibleText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	return doc.Text(), nil
}

// ArticleExtractor keeps only the main content of the page as detected by
// readability. Navigation, footers and sidebars are dropped, which makes it
// less noisy for pages whose chrome changes on every request.
type ArticleExtractor struct {
	fallback Extractor
}

// NewArticleExtractor creates an extractor that falls back to visible text
// when readability cannot find an article.
func NewArticleExtractor() *ArticleExtractor {
	return &ArticleExtractor{fallback: NewVisibleTextExtractor()}
}

// ExtractText implements Extractor
func (e *ArticleExtractor) ExtractText(htmlContent, pageURL string) (string, error) {
	text, err := ExtractArticleText(htmlContent, pageURL)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	return e.fallback.ExtractText(htmlContent, pageURL)
}

// ExtractArticleText extracts the main article text from HTML content
func ExtractArticleText(htmlContent, pageURL string) (string, error) {
	var base *url.URL
	if pageURL != "" {
		if parsed, err := url.Parse(pageURL); err == nil {
			base = parsed
		}
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract article: %w", err)
	}

	return article.TextContent, nil
}
