package floatplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() DeliveryKey {
	return DeliveryKey{
		CDN: "https://edge.example.com",
		Resource: DeliveryResource{
			URI: "/v/{qualityLevels}.m3u8?a={qualityLevelParams.2}&b={qualityLevelParams.4}",
			Data: DeliveryData{
				QualityLevels: []QualityLevel{
					{Name: "1080", Label: "1080p", Order: 3},
					{Name: "360", Label: "360p", Order: 1},
					{Name: "720", Label: "720p", Order: 2},
				},
				QualityLevelParams: map[string]map[string]string{
					"360":  {"2": "x", "4": "y"},
					"720":  {"2": "m", "4": "n"},
					"1080": {"2": "p", "4": "q"},
				},
			},
		},
	}
}

func TestStreamURLByNameOrLabel(t *testing.T) {
	k := testKey()

	u, err := k.StreamURL("720")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com/v/720.m3u8?a=m&b=n", u)

	u, err = k.StreamURL("1080p")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com/v/1080.m3u8?a=p&b=q", u)
}

func TestStreamURLDefaultQuality(t *testing.T) {
	u, err := testKey().StreamURL(DefaultQuality)
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com/v/720.m3u8?a=m&b=n", u)
}

func TestStreamURLFallsBackToLowestLevel(t *testing.T) {
	u, err := testKey().StreamURL("4k")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.com/v/360.m3u8?a=x&b=y", u)
}

func TestStreamURLWithoutLevels(t *testing.T) {
	k := DeliveryKey{CDN: "https://edge", Resource: DeliveryResource{URI: "/live/stream.m3u8"}}
	u, err := k.StreamURL("")
	require.NoError(t, err)
	assert.Equal(t, "https://edge/live/stream.m3u8", u)

	k.Resource.URI = "/v/{qualityLevels}.m3u8"
	_, err = k.StreamURL("")
	assert.ErrorIs(t, err, ErrNoQualityLevels)
}
