package floatplane

import (
	"errors"
	"sort"
	"strings"
)

var ErrNoQualityLevels = errors.New("floatplane: delivery key has no quality levels")

// DefaultQuality is the level players request when the user has no preference.
const DefaultQuality = "720"

// StreamURL builds the playable URL for the named quality level ("1080",
// "720", ...). An unknown or empty name falls back to the lowest level.
// The resource URI carries "{qualityLevels}" and "{qualityLevelParams.<k>}"
// placeholders that are filled from the chosen level.
func (k DeliveryKey) StreamURL(level string) (string, error) {
	levels := k.Resource.Data.QualityLevels
	uri := k.Resource.URI
	if len(levels) == 0 {
		if strings.Contains(uri, "{") {
			return "", ErrNoQualityLevels
		}
		return k.CDN + uri, nil
	}

	chosen, ok := findLevel(levels, level)
	if !ok {
		chosen = lowestLevel(levels)
	}

	uri = strings.ReplaceAll(uri, "{qualityLevels}", chosen.Name)
	params := k.Resource.Data.QualityLevelParams[chosen.Name]
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		uri = strings.ReplaceAll(uri, "{qualityLevelParams."+n+"}", params[n])
	}
	return k.CDN + uri, nil
}

func findLevel(levels []QualityLevel, name string) (QualityLevel, bool) {
	for _, l := range levels {
		if l.Name == name || l.Label == name {
			return l, true
		}
	}
	return QualityLevel{}, false
}

func lowestLevel(levels []QualityLevel) QualityLevel {
	lowest := levels[0]
	for _, l := range levels[1:] {
		if l.Order < lowest.Order {
			lowest = l
		}
	}
	return lowest
}
