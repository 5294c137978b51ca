package domain_test

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

var (
	_ sql.Scanner   = (*domain.Metadata)(nil)
	_ driver.Valuer = domain.Metadata{}
)

func TestMetadata_IsEmpty(t *testing.T) {
	t.Parallel()

	var nilMeta *domain.Metadata
	assert.True(t, nilMeta.IsEmpty())
	assert.True(t, (&domain.Metadata{}).IsEmpty())
	assert.False(t, (&domain.Metadata{Title: "x"}).IsEmpty())
	assert.False(t, (&domain.Metadata{Embed: &domain.Embed{Provider: "youtube"}}).IsEmpty())
}

func TestMetadata_ValueScan(t *testing.T) {
	t.Parallel()

	in := domain.Metadata{
		Title: "Song",
		Image: "https://img.example/cover.jpg",
		Embed: &domain.Embed{
			Provider: "bandcamp",
			EmbedURL: "https://bandcamp.com/EmbeddedPlayer/album=1/",
			Height:   470,
			Kind:     domain.KindAlbum,
		},
	}

	v, err := in.Value()
	require.NoError(t, err)

	var out domain.Metadata
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	var fromString domain.Metadata
	require.NoError(t, fromString.Scan(`{"title":"t"}`))
	assert.Equal(t, "t", fromString.Title)

	assert.Error(t, (&domain.Metadata{}).Scan(nil))
	assert.Error(t, (&domain.Metadata{}).Scan(42))
	assert.Error(t, (&domain.Metadata{}).Scan([]byte("{not json")))
}

func TestMetadataUpdatedEvent_JSON(t *testing.T) {
	t.Parallel()

	evt := domain.NewMetadataUpdatedEvent("c1", "l1", &domain.Metadata{Title: "Hello"})
	b, err := json.Marshal(evt)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"type":"link_metadata_updated","data":{"content_id":"c1","link_id":"l1","metadata":{"title":"Hello"}}}`,
		string(b))
}

func TestEmptyMetadata_MarshalsToEmptyObject(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(domain.Metadata{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}
