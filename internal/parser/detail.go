package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankLines     = regexp.MustCompile(`\n\s*\n+`)
	inlineSpaces   = regexp.MustCompile(`[ \t\r\f]+`)
	slugSeparators = regexp.MustCompile(`[-_]+`)
	categoryID     = regexp.MustCompile(`^cat\d+$`)
)

// DetailPage is what the item page contributes to a record.
type DetailPage struct {
	Details string
	Rating  *float64
}

// ParseDetailPage reads the plain text of the info region and a rating from any
// element whose aria-label reads like "4,5 de 5".
func ParseDetailPage(html, regionSelector string) (*DetailPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	page := &DetailPage{}

	if regionSelector != "" {
		page.Details = blockText(doc.Find(regionSelector).First())
	}

	doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if rating := RatingFromLabel(label); rating != nil {
			page.Rating = rating
			return false
		}
		return true
	})

	return page, nil
}

// FirstText returns the trimmed text of the first element matching any selector
// whose text satisfies accept. A nil accept takes any non-empty text.
func FirstText(sel *goquery.Selection, selectors []string, accept func(string) bool) string {
	for _, selector := range selectors {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := normalizeInline(s.Text())
			if text == "" {
				return true
			}
			if accept != nil && !accept(text) {
				return true
			}
			found = text
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// CategoryLabel derives a category name from a listing page: h1, then the last
// breadcrumb entry, then the path segment after /category/.
func CategoryLabel(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if h1 := normalizeInline(doc.Find("h1").First().Text()); h1 != "" {
			return h1
		}

		crumb := doc.Find(`nav[aria-label*="breadcrumb"], nav[aria-label*="Breadcrumb"], nav [aria-label*="breadcrumb"]`).First()
		if crumb.Length() > 0 {
			items := crumb.Find("li, a")
			if items.Length() > 0 {
				if last := normalizeInline(items.Last().Text()); last != "" {
					return last
				}
			}
			if text := normalizeInline(crumb.Text()); text != "" {
				return text
			}
		}
	}

	return NameFromURL(pageURL)
}

// NameFromURL turns ".../category/cat123/Televisores-Smart" style paths into a title.
func NameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	segment := parts[len(parts)-1]
	for i, p := range parts {
		if p == "category" && i+1 < len(parts) {
			segment = parts[i+1]
			// Falabella puts an opaque id first and the readable name after it.
			if i+2 < len(parts) && categoryID.MatchString(segment) {
				segment = parts[i+2]
			}
			break
		}
	}

	words := strings.Fields(slugSeparators.ReplaceAllString(segment, " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func blockText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}

	// Separate block-level children so the text keeps its line structure.
	clone := sel.Clone()
	clone.Find("br").ReplaceWithHtml("\n")
	clone.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(clone.Text(), "\n")
	for i, line := range lines {
		lines[i] = normalizeInline(line)
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(text)
}

func normalizeInline(s string) string {
	return strings.TrimSpace(inlineSpaces.ReplaceAllString(s, " "))
}
