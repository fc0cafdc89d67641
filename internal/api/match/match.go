// Package match decides which preferences a candidate POI satisfies and
// turns the matched subset into a score and a rationale.
package match

import (
	"fmt"
	"strings"

	"github.com/meetspot/meetspot-api/internal/types"
)

// NeutralScore is the floor of the score scale. Candidates are framed as
// "acceptable or better" on purpose: a place nobody's preferences speak
// against still scores 7.
const NeutralScore = 7.0

// Preferences returns the subset of prefs the POI satisfies, preserving
// input order. Preference types without a deterministic rule never match;
// there is no probabilistic placeholder.
func Preferences(poi types.CandidatePOI, prefs []types.ParsedPreference, weather *types.WeatherData) []types.ParsedPreference {
	matched := make([]types.ParsedPreference, 0, len(prefs))
	name := strings.ToLower(poi.Name)
	poiType := strings.ToLower(poi.Type)

	for _, pref := range prefs {
		value := strings.ToLower(pref.Value)
		var ok bool
		switch pref.Type {
		case types.PreferenceBrand, types.PreferenceAmenity:
			ok = strings.Contains(name, value) || (poiType != "" && strings.Contains(poiType, value))
		case types.PreferenceLocationType:
			ok = poiType != "" && strings.Contains(poiType, value)
		case types.PreferenceWeather:
			if weather != nil && len(weather.Forecasts) > 0 {
				ok = strings.Contains(strings.ToLower(weather.Forecasts[0].DayWeather), value)
			}
		}
		if ok {
			matched = append(matched, pref)
		}
	}
	return matched
}

// Score weighs the matched preferences by importance against the full set.
// The result is always within [7,10]; an empty preference list yields the
// neutral score exactly.
func Score(matched, all []types.ParsedPreference) float64 {
	if len(all) == 0 {
		return NeutralScore
	}

	var total, hit int
	for _, pref := range all {
		total += pref.Importance
	}
	for _, pref := range matched {
		hit += pref.Importance
	}
	if total == 0 {
		return NeutralScore
	}
	return NeutralScore + 3*float64(hit)/float64(total)
}

// Rationale renders the deterministic explanation shown with a
// recommendation.
func Rationale(matched []types.ParsedPreference, peopleCount int) string {
	values := make([]string, 0, len(matched))
	for _, pref := range matched {
		values = append(values, pref.Value)
	}
	return fmt.Sprintf("This location matches %d of your preferences (%s) and provides reasonable travel times for all %d people.",
		len(matched), strings.Join(values, ", "), peopleCount)
}
