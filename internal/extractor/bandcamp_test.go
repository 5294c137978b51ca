package extractor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/extractor"
)

const bandcampURL = "https://exampleartist.bandcamp.com/album/night-drive"

const bandcampPage = `<!DOCTYPE html>
<html>
<head>
<title>Night Drive | Example Artist</title>
<meta property="og:title" content="Night Drive, by Example Artist">
<meta property="og:image" content="https://f4.bcbits.com/img/a0000000001_5.jpg">
%s
%s
</head>
<body><h2 class="trackTitle">Night Drive</h2></body>
</html>`

const bandcampLD = `<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "MusicAlbum",
  "@id": "https://exampleartist.bandcamp.com/album/night-drive",
  "name": "Night Drive",
  "byArtist": {"@type": "MusicGroup", "name": "Example Artist"},
  "image": ["https://f4.bcbits.com/img/a0000000001_10.jpg"],
  "additionalProperty": [
    {"@type": "PropertyValue", "name": "art_id", "value": 1},
    {"@type": "PropertyValue", "name": "item_id", "value": 987654321},
    {"@type": "PropertyValue", "name": "item_type", "value": "a"}
  ]
}
</script>`

const bandcampLegacy = `<meta name="bc-page-properties" content='{"item_type":"a","item_id":123456,"tralbum_page_version":0}'>`

func extractBandcamp(t *testing.T, ld, legacy string) *domain.Metadata {
	t.Helper()

	md, err := extractor.NewBandcamp().Extract(newPage(t, bandcampURL, fmt.Sprintf(bandcampPage, ld, legacy)))
	require.NoError(t, err)
	require.NotNil(t, md)
	return md
}

func TestBandcamp_Tier1LinkedData(t *testing.T) {
	t.Parallel()

	md := extractBandcamp(t, bandcampLD, bandcampLegacy)

	require.NotNil(t, md.Embed)
	assert.Contains(t, md.Embed.EmbedURL, "album=987654321")
	assert.Equal(t,
		"https://bandcamp.com/EmbeddedPlayer/album=987654321/size=large/bgcol=ffffff/linkcol=0687f5/tracklist=false/transparent=true/",
		md.Embed.EmbedURL)
	assert.Equal(t, "bandcamp", md.Embed.Provider)
	assert.Equal(t, domain.KindAlbum, md.Embed.Kind)
	assert.Equal(t, 470, md.Embed.Height)
	assert.Equal(t, "Night Drive, by Example Artist", md.Title)
	assert.Equal(t, "https://f4.bcbits.com/img/a0000000001_10.jpg", md.Image)
}

func TestBandcamp_Tier2LegacyAttribute(t *testing.T) {
	t.Parallel()

	md := extractBandcamp(t, "", bandcampLegacy)

	require.NotNil(t, md.Embed)
	assert.Contains(t, md.Embed.EmbedURL, "album=123456")
	assert.Equal(t, 470, md.Embed.Height)
	assert.Equal(t, "Night Drive, by Example Artist", md.Title)
	assert.Equal(t, "https://f4.bcbits.com/img/a0000000001_5.jpg", md.Image)
}

func TestBandcamp_Tier3GenericTags(t *testing.T) {
	t.Parallel()

	md := extractBandcamp(t, "", "")

	assert.Nil(t, md.Embed)
	assert.Equal(t, "Night Drive, by Example Artist", md.Title)
	assert.Equal(t, "https://f4.bcbits.com/img/a0000000001_5.jpg", md.Image)
	assert.Empty(t, md.Description)
	assert.Empty(t, md.SiteName)
}

func TestBandcamp_MalformedDataFallsThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ld        string
		legacy    string
		wantEmbed string
	}{
		{
			name:      "invalid json-ld uses legacy attribute",
			ld:        `<script type="application/ld+json">{"@type": "MusicAlbum", "name": </script>`,
			legacy:    bandcampLegacy,
			wantEmbed: "album=123456",
		},
		{
			name:      "json-ld without item_id uses legacy attribute",
			ld:        `<script type="application/ld+json">{"@type":"MusicAlbum","name":"Night Drive"}</script>`,
			legacy:    bandcampLegacy,
			wantEmbed: "album=123456",
		},
		{
			name:      "non numeric item_id uses legacy attribute",
			ld:        `<script type="application/ld+json">{"@type":"MusicAlbum","additionalProperty":[{"name":"item_id","value":"abc"}]}</script>`,
			legacy:    bandcampLegacy,
			wantEmbed: "album=123456",
		},
		{
			name:      "string item_id is accepted",
			ld:        `<script type="application/ld+json">{"@type":"MusicRecording","name":"Song","additionalProperty":[{"name":"item_id","value":"555"}]}</script>`,
			wantEmbed: "track=555",
		},
		{
			name:   "broken legacy attribute yields no embed",
			legacy: `<meta name="bc-page-properties" content='{"item_type":"a","item_id":'>`,
		},
		{
			name:   "unknown legacy item type yields no embed",
			legacy: `<meta name="bc-page-properties" content='{"item_type":"b","item_id":42}'>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			md := extractBandcamp(t, tt.ld, tt.legacy)
			if tt.wantEmbed == "" {
				assert.Nil(t, md.Embed)
				assert.NotEmpty(t, md.Title)
				return
			}
			require.NotNil(t, md.Embed)
			assert.Contains(t, md.Embed.EmbedURL, tt.wantEmbed)
		})
	}
}

func TestBandcamp_TrackHeight(t *testing.T) {
	t.Parallel()

	legacy := `<meta name="bc-page-properties" content='{"item_type":"t","item_id":777}'>`
	md := extractBandcamp(t, "", legacy)

	require.NotNil(t, md.Embed)
	assert.True(t, strings.Contains(md.Embed.EmbedURL, "track=777"))
	assert.Equal(t, domain.KindTrack, md.Embed.Kind)
	assert.Equal(t, 442, md.Embed.Height)
}
