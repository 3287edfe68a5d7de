package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("/avatars/", "Me.PNG")

	assert.True(t, strings.HasPrefix(key, "avatars/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, NewObjectKey("avatars", "Me.PNG"))
}

func TestPublicURL(t *testing.T) {
	base, err := url.Parse("https://cdn.sabo.vn/media/")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.sabo.vn/media/avatars/a.png", publicURL(base, "avatars/a.png"))
	assert.Equal(t, "https://cdn.sabo.vn/media/avatars/a.png", publicURL(base, "/avatars/a.png"))
	assert.Empty(t, publicURL(base, ""))

	bare, err := url.Parse("https://cdn.sabo.vn")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sabo.vn/x.jpg", publicURL(bare, "x.jpg"))
}

func TestNewCloudflareR2Uploader_RequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "a"})
	assert.Error(t, err)
}

func TestDisabledUploader(t *testing.T) {
	u := NewDisabledUploader()

	_, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, u.Delete(context.Background(), "k"), ErrStorageDisabled)
	assert.Empty(t, u.GetPublicURL("k"))
}
