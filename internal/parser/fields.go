package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maltedev/falabella-scraper/internal/models"
)

// DefaultCurrency is the currency reported for every "$" price on the site.
const DefaultCurrency = "COP"

var (
	pricePattern     = regexp.MustCompile(`(\$)\s*([\d.,]+)`)
	nonDigitPattern  = regexp.MustCompile(`[^\d]`)
	sizePattern      = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:["”]|pulgadas?|in\b)`)
	brandSplit       = regexp.MustCompile(`\s+|-|–|—`)
	brandStrip       = regexp.MustCompile(`[^A-Za-zÁÉÍÓÚÜÑáéíóúüñ0-9]`)
	ratingLabel      = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:de|of|out\s+of)\s*5`)
	promotionalTitle = regexp.MustCompile(`(?i)^\s*(env[ií]o\s+gratis|free\s+shipping|por\s+falabella|vendid[oa]\s+por\s+falabella|sold\s+by|exclusivo\s+falabella|marketplace\s+falabella|marketplace\s+exclusive)\b`)
	prepositionTitle = regexp.MustCompile(`(?i)^\s*(por|by|for)\b`)
)

var brandStopWords = map[string]struct{}{
	"tv": {}, "smart": {}, "led": {}, "uhd": {}, "4k": {},
	"full": {}, "hd": {}, "de": {}, "para": {}, "por": {},
}

// Price is the normalised form of a listing price.
type Price struct {
	Text     string
	Value    *int64
	Currency *string
}

// NormalizePrice extracts the first "$ <digits>" group from raw. It never fails:
// anything unparsable yields ("N/A", nil, nil). Separators are dropped, so
// "1.299.000" and "12.99" are both read as plain digit runs.
func NormalizePrice(raw string) Price {
	missing := Price{Text: models.NotAvailable}

	if raw == "" || raw == models.NotAvailable {
		return missing
	}

	m := pricePattern.FindStringSubmatch(raw)
	if m == nil {
		return missing
	}

	symbol, figure := m[1], m[2]
	digits := nonDigitPattern.ReplaceAllString(figure, "")
	if digits == "" {
		return missing
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return missing
	}

	currency := DefaultCurrency
	return Price{
		Text:     symbol + " " + figure,
		Value:    &value,
		Currency: &currency,
	}
}

// ExtractSize returns the first inch size in the title (e.g. `55"`) or "N/A".
func ExtractSize(title string) string {
	m := sizePattern.FindStringSubmatch(title)
	if m == nil {
		return models.NotAvailable
	}
	return m[1] + `"`
}

// InferBrand returns the first meaningful title token, upper-cased.
func InferBrand(title string) string {
	for _, part := range brandSplit.Split(title, -1) {
		word := brandStrip.ReplaceAllString(part, "")
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if _, stop := brandStopWords[strings.ToLower(word)]; stop {
			continue
		}
		return strings.ToUpper(word)
	}
	return models.NotAvailable
}

// IsPromotionalTitle reports whether a pod title belongs to a banner rather than a product.
func IsPromotionalTitle(title string) bool {
	return promotionalTitle.MatchString(title) || prepositionTitle.MatchString(title)
}

// ParseRating reads a listing rating attribute. Empty, "N/A", zero and
// non-finite values are missing.
func ParseRating(raw string) *float64 {
	raw = strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	if raw == "" || raw == models.NotAvailable {
		return nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return nil
	}
	return &value
}

// RatingFromLabel parses accessibility labels such as "4,5 de 5" or "4.5 out of 5".
func RatingFromLabel(label string) *float64 {
	m := ratingLabel.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	return ParseRating(m[1])
}

// SizeOrNil adapts ExtractSize to the record's nullable size field.
func SizeOrNil(title string) *string {
	if title == "" || title == models.NotAvailable {
		return nil
	}
	size := ExtractSize(title)
	if size == models.NotAvailable {
		return nil
	}
	return &size
}
