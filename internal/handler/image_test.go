package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bloorange/piCtureX/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newFileHandler(t *testing.T) (*Handler, *storage.DiskStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewDiskStore(filepath.Join(root, "uploads"), filepath.Join(root, "thumbnails"))
	require.NoError(t, err)
	h := &Handler{store: store, log: zap.NewNop()}
	return h, store, root
}

func serveFile(h *Handler, fn gin.HandlerFunc, name string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "filename", Value: name}}
	fn(c)
	return w
}

func TestGetImageFileServesStoredBytes(t *testing.T) {
	h, store, _ := newFileHandler(t)
	data := []byte("file bytes")
	name, _, _, err := store.SaveOriginal(data, "jpg")
	require.NoError(t, err)

	w := serveFile(h, h.GetImageFile, name)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
}

func TestGetImageFileRejectsTraversalNames(t *testing.T) {
	h, _, root := newFileHandler(t)

	// A real file one level above the upload root must stay unreachable.
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("credentials"), 0o644))

	for _, name := range []string{
		"../secret.txt",
		"..",
		".",
		"",
		"a/b.jpg",
		`a\b.jpg`,
	} {
		w := serveFile(h, h.GetImageFile, name)
		assert.Equal(t, http.StatusNotFound, w.Code, "name %q", name)
		assert.NotContains(t, w.Body.String(), "credentials", "name %q", name)
	}
}

func TestGetThumbnailRejectsTraversalNames(t *testing.T) {
	h, _, _ := newFileHandler(t)

	w := serveFile(h, h.GetThumbnail, "../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetThumbnailFallsBackToFullImage(t *testing.T) {
	h, store, _ := newFileHandler(t)
	data := []byte("full-resolution bytes")
	name, _, _, err := store.SaveOriginal(data, "jpg")
	require.NoError(t, err)

	// No thumbnail was ever written for this asset.
	w := serveFile(h, h.GetThumbnail, name)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
}

func TestGetThumbnailPrefersThumbnail(t *testing.T) {
	h, store, _ := newFileHandler(t)
	name, _, _, err := store.SaveOriginal([]byte("full"), "jpg")
	require.NoError(t, err)
	_, err = store.SaveThumbnail([]byte("small"), name)
	require.NoError(t, err)

	w := serveFile(h, h.GetThumbnail, name)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "small", w.Body.String())
}

func TestValidStorageName(t *testing.T) {
	assert.True(t, validStorageName("0b5e7a2c.jpg"))
	assert.True(t, validStorageName("thumb_0b5e7a2c.jpg"))
	assert.False(t, validStorageName(""))
	assert.False(t, validStorageName("."))
	assert.False(t, validStorageName(".."))
	assert.False(t, validStorageName("../x.jpg"))
	assert.False(t, validStorageName("dir/x.jpg"))
	assert.False(t, validStorageName(`dir\x.jpg`))
}
