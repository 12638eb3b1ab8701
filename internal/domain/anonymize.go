package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// houseNumberRe matches a leading house-number token and its trailing
// separator, e.g. "123 Bleecker Street" or "123-125 Bleecker Street".
var houseNumberRe = regexp.MustCompile(`^(\d+)[-\s]*`)

// Anonymize produces the public display location for a complaint.
//
// Commercial addresses are returned exactly as reported: nuisance
// sources that operate as businesses are named, not shielded.
// Residential addresses are rounded down to the hundred block, with a
// bare street name when the block would be 0 and a cross-street
// fallback when no street can be resolved. An empty return value means
// the record is unlocatable and must not be clustered.
func Anonymize(address, street, crossStreets string, commercial bool) string {
	address = strings.TrimSpace(address)
	street = strings.TrimSpace(street)
	crossStreets = strings.TrimSpace(crossStreets)

	if commercial && address != "" {
		return address
	}

	houseNumber, hasNumber := leadingHouseNumber(address)
	if street == "" {
		street = strings.TrimSpace(houseNumberRe.ReplaceAllString(address, ""))
	}

	if street != "" {
		if !hasNumber {
			return titleCase(street)
		}
		block := houseNumber / 100 * 100
		if block == 0 {
			// "0 Block of X" reads as nonsense; the street alone is
			// already block-level for two-digit house numbers.
			return titleCase(street)
		}
		return fmt.Sprintf("%d Block of %s", block, titleCase(street))
	}

	if crossStreets != "" {
		// Already display-cased by CrossStreets; the "and" conjunction
		// must stay lowercase.
		return crossStreets
	}

	return ""
}

// CrossStreets joins the feed's two intersection fields into one
// display string, tolerating either being empty. Each street is
// title-cased on its own so the joining "and" stays lowercase.
func CrossStreets(first, second string) string {
	first = strings.TrimSpace(first)
	second = strings.TrimSpace(second)
	switch {
	case first != "" && second != "":
		return titleCase(first) + " and " + titleCase(second)
	case first != "":
		return titleCase(first)
	default:
		return titleCase(second)
	}
}

func leadingHouseNumber(address string) (int, bool) {
	matches := houseNumberRe.FindStringSubmatch(address)
	if len(matches) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// titleCase uppercases the first letter of each word and lowercases the
// rest, so "BLEECKER STREET" and "bleecker street" both display as
// "Bleecker Street".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
