package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRe     = regexp.MustCompile(`(?:kr\s*)?(\d+[,.]\d+|\d+)`)
	unitPriceRe = regexp.MustCompile(`(\d+[,.]?\d*)\s*/\s*(\w+)`)
	volumeRe    = regexp.MustCompile(`(?i)(\d+[,.]?\d*)\s*(ml|l|dl|cl|g|kg)\b`)
	fatRe       = regexp.MustCompile(`(?i)(\d+[,.]?\d*)\s*%\s*fett`)
	nonWordRe   = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// ParsePrice extracts the numeric value from a Norwegian price string such
// as "kr 35,30". Unparseable input yields 0.
func ParsePrice(text string) float64 {
	text = strings.ReplaceAll(text, " ", " ")
	if m := priceRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return v
		}
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(text, "kr", ""), ",", ".")
	cleaned = regexp.MustCompile(`[^\d.]`).ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseUnitPrice extracts price and unit from a unit price string such as
// "kr 20,17 /l". ok is false when nothing parseable is found.
func ParseUnitPrice(text string) (price float64, unit string, ok bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, "kr", ""), " ", " "))
	m := unitPriceRe.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, "", false
	}
	return v, m[2], true
}

// ParseProductInfo extracts structured attributes from an info string such
// as "1% fett, 1,75 l, TINE": volume with unit, fat percentage and brand.
func ParseProductInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == "" {
		return result
	}

	for _, part := range strings.Split(info, ",") {
		part = strings.TrimSpace(part)

		if m := volumeRe.FindStringSubmatch(part); m != nil {
			result["volume"] = strings.ReplaceAll(m[1], ",", ".")
			result["volume_unit"] = strings.ToLower(m[2])
			continue
		}
		if m := fatRe.FindStringSubmatch(part); m != nil {
			result["fat_percentage"] = strings.ReplaceAll(m[1], ",", ".")
			continue
		}
		// Uppercase words are almost always brand names on these sites
		if part != "" && part == strings.ToUpper(part) && part != strings.ToLower(part) {
			result["brand"] = part
		}
	}

	return result
}

// GenerateProductID derives a stable identifier from name and info so the
// same product hashes to the same row across runs.
func GenerateProductID(name, info string) string {
	cleaned := strings.ToLower(nonWordRe.ReplaceAllString(name+"_"+info, ""))
	if len(cleaned) > 32 {
		cleaned = cleaned[:32]
	}
	return cleaned
}

// resolveRef resolves href against base, returning href untouched when
// either side fails to parse.
func resolveRef(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// categoryNameFromURL derives a human readable category name from the last
// path segment of a URL.
func categoryNameFromURL(rawURL string) string {
	trimmed := strings.Trim(rawURL, "/")
	if i := strings.Index(trimmed, "?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "unknown"
	}
	return parts[len(parts)-1]
}
