package wakeword

import "strings"

var (
	visionKeywords = []string{
		"what am i looking at", "what is this", "what do you see",
		"look at this", "take a photo", "take a picture", "describe this",
		"what's in front of me", "read this",
	}
	locationKeywords = []string{
		"where am i", "nearby", "near me", "closest", "nearest", "directions to",
	}
	geocodeKeywords = []string{
		"in ", "at ", "address", "what city", "what neighborhood",
	}
	weatherKeywords = []string{"weather", "forecast", "temperature", "rain", "snow"}
)

func containsAny(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, n) {
			return true
		}
	}
	return false
}

// IsVisionQuery reports whether query is best answered using a fresh photo.
func IsVisionQuery(query string) bool {
	return containsAny(query, visionKeywords)
}

// IsLocationQuery reports whether query needs the user's current location.
func IsLocationQuery(query string) bool {
	return containsAny(query, locationKeywords)
}

// IsWeatherQuery reports whether query is about the weather.
func IsWeatherQuery(query string) bool {
	return containsAny(query, weatherKeywords)
}

// NeedsGeocoding reports whether answering query requires resolving
// coordinates to a place name, not just raw lat/lng. A weather query
// without "in"/"at" implies location is needed but not geocoding; anything
// in the location keyword set implies geocoding is needed too.
func NeedsGeocoding(query string) bool {
	if IsLocationQuery(query) {
		return true
	}
	if IsWeatherQuery(query) {
		return containsAny(query, []string{" in ", " at "})
	}
	return containsAny(query, geocodeKeywords)
}

// QueryNeedsLocation reports whether query needs a current coordinate fix
// at all, whether or not it also needs geocoding.
func QueryNeedsLocation(query string) bool {
	return IsLocationQuery(query) || IsWeatherQuery(query) || NeedsGeocoding(query)
}
