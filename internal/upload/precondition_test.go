package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
)

func TestRequireFields(t *testing.T) {
	check := RequireFields("title", "content")

	assert.Nil(t, check(map[string]string{"title": "a", "content": "b"}, nil))

	rej := check(map[string]string{"title": "a"}, nil)
	require.NotNil(t, rej)
	assert.Equal(t, "content is required", rej.Message())
}

func TestRequireMinItems(t *testing.T) {
	check := RequireMinItems(1, "a news story needs at least one image")

	rej := check(nil, nil)
	require.NotNil(t, rej)
	assert.Equal(t, "a news story needs at least one image", rej.Message())

	items := []*models.MediaItem{{Origin: models.OriginRemote, RemoteID: "srv-1"}}
	assert.Nil(t, check(nil, items))
}

func TestRequireMimePresent(t *testing.T) {
	check := RequireMimePresent("application/pdf", "a scholarship needs its PDF attachment")

	items := []*models.MediaItem{
		{Origin: models.OriginLocal, MimeType: "image/png"},
	}
	rej := check(nil, items)
	require.NotNil(t, rej)
	assert.Equal(t, "a scholarship needs its PDF attachment", rej.Message())

	items = append(items, &models.MediaItem{Origin: models.OriginLocal, MimeType: "application/pdf"})
	assert.Nil(t, check(nil, items))
}
