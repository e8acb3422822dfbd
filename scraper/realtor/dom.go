package realtor

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"realty-scanner/models"
)

// cardSelectors are tried in order; the first that yields listing-like
// cards wins.
var cardSelectors = []string{
	".listingCard",
	".cardCon",
	`[class*="listing"]`,
	`[class*="property"]`,
}

var (
	mlsRe     = regexp.MustCompile(`(?i)MLS\S*\s*(?:#|number)?\s*:?\s*([A-Z]?\d{5,})`)
	cardPrice = regexp.MustCompile(`\$\s?\d[\d,]*`)
	cardBeds  = regexp.MustCompile(`(?i)(\d+)(?:\s*\+\s*\d+)?\s*(?:bd|beds?|bedrooms?)\b`)
	cardBaths = regexp.MustCompile(`(?i)(\d+)\s*(?:ba|baths?|bathrooms?)\b`)
	urlID     = regexp.MustCompile(`/real-estate/(\d+)`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

const descriptionLimit = 500

// ExtractCards pulls listing-like cards out of rendered HTML. Cards without a
// price or an MLS number are ignored.
func ExtractCards(html string) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse rendered html: %v", ErrParse, err)
	}

	for _, sel := range cardSelectors {
		var out []models.RawListing
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			if raw, ok := parseCard(card); ok {
				out = append(out, raw)
			}
		})
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

func parseCard(card *goquery.Selection) (models.RawListing, bool) {
	text := strings.TrimSpace(spaceRe.ReplaceAllString(card.Text(), " "))
	if text == "" {
		return models.RawListing{}, false
	}

	var raw models.RawListing
	if m := mlsRe.FindStringSubmatch(text); m != nil {
		raw.ID = m[1]
	}
	raw.PriceText = cardPrice.FindString(text)
	if raw.ID == "" && raw.PriceText == "" {
		return models.RawListing{}, false
	}

	if href, ok := card.Find(`a[href*="/real-estate/"]`).First().Attr("href"); ok {
		raw.URLPath = strings.TrimPrefix(href, "https://www.realtor.ca")
		if raw.ID == "" {
			if m := urlID.FindStringSubmatch(href); m != nil {
				raw.ID = m[1]
			}
		}
	}
	if raw.ID == "" {
		h := fnv.New32a()
		h.Write([]byte(text))
		raw.ID = fmt.Sprintf("dom-%08x", h.Sum32())
	}

	raw.Address = strings.TrimSpace(card.Find(`.listingCardAddress, [class*="Address"], [class*="address"]`).First().Text())
	if m := cardBeds.FindStringSubmatch(text); m != nil {
		raw.Bedrooms = m[1]
	}
	if m := cardBaths.FindStringSubmatch(text); m != nil {
		raw.Bathrooms = m[1]
	}
	raw.Description = text
	if r := []rune(text); len(r) > descriptionLimit {
		raw.Description = string(r[:descriptionLimit])
	}
	return raw, true
}
