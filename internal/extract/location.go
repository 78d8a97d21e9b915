package extract

import (
	"regexp"
	"strings"
)

const (
	minLocationLen = 3
	maxLocationLen = 50

	maxLocationWords  = 4
	maxVenueContext   = 1
	punctuationCutset = ".,!?;:)\"'"
)

var rePreposition = regexp.MustCompile(`(?i)\b(at|in|near)\s+`)

// venueNouns is a closed dictionary of venue-type words that count as a
// location mention even without a preposition.
var venueNouns = map[string]bool{
	"library": true, "cafe": true, "park": true, "office": true,
	"restaurant": true, "bar": true, "gym": true, "school": true,
	"campus": true, "mall": true, "museum": true, "theater": true,
	"pub": true, "bookstore": true, "lounge": true, "beach": true,
	"rooftop": true, "diner": true, "club": true,
}

// locationStopWords terminate a location phrase. Prepositions, conjunctions,
// time-of-day words, and weekday names never belong to a venue name.
var locationStopWords = map[string]bool{
	"at": true, "in": true, "on": true, "near": true, "by": true,
	"from": true, "until": true, "before": true, "after": true,
	"around": true, "to": true, "and": true, "or": true, "but": true,
	"if": true, "so": true, "then": true, "for": true, "with": true,
	"tomorrow": true, "tonight": true, "today": true,
	"morning": true, "afternoon": true, "evening": true, "night": true,
	"am": true, "pm": true, "anytime": true, "works": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

var articles = map[string]bool{"the": true, "a": true, "an": true}

// extractLocations finds candidate location strings in the original-cased
// text. Matches shorter than 3 or longer than 50 characters are discarded;
// duplicates are removed case-insensitively, keeping the first-seen casing.
func extractLocations(text string) []string {
	var candidates []string
	candidates = append(candidates, prepositionLocations(text)...)
	candidates = append(candidates, venueLocations(text)...)

	seen := make(map[string]bool, len(candidates))
	var locations []string
	for _, c := range candidates {
		if len(c) < minLocationLen || len(c) > maxLocationLen {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		locations = append(locations, c)
	}
	return locations
}

// prepositionLocations captures the words following "at", "in", or "near" up
// to a boundary word, a number, punctuation, or the word limit.
func prepositionLocations(text string) []string {
	var out []string
	for _, loc := range rePreposition.FindAllStringIndex(text, -1) {
		candidate := captureLocationPhrase(text[loc[1]:])
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func captureLocationPhrase(rest string) string {
	var words []string
	for _, field := range strings.Fields(rest) {
		word := strings.TrimRight(field, punctuationCutset)
		terminal := word != field
		lower := strings.ToLower(word)

		if word == "" || containsDigit(word) || locationStopWords[lower] {
			break
		}
		if articles[lower] && len(words) == 0 {
			// Leading article is skipped, not captured.
			if terminal {
				break
			}
			continue
		}

		words = append(words, word)
		if terminal || len(words) == maxLocationWords {
			break
		}
	}
	return strings.Join(words, " ")
}

// venueLocations finds venue-dictionary nouns and captures the adjacent
// preceding word as context ("Central Park", "corner cafe"). Articles,
// boundary words, and anything number-bearing stop the capture.
func venueLocations(text string) []string {
	fields := strings.Fields(text)
	var out []string
	for i, field := range fields {
		word := strings.TrimRight(field, punctuationCutset)
		if !venueNouns[strings.ToLower(word)] {
			continue
		}

		phrase := []string{word}
		for j := i - 1; j >= 0 && len(phrase) <= maxVenueContext; j-- {
			prev := strings.TrimRight(fields[j], punctuationCutset)
			lower := strings.ToLower(prev)
			if prev != fields[j] || containsDigit(prev) ||
				locationStopWords[lower] || articles[lower] || venueNouns[lower] {
				break
			}
			phrase = append([]string{prev}, phrase...)
		}
		out = append(out, strings.Join(phrase, " "))
	}
	return out
}

func containsDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
