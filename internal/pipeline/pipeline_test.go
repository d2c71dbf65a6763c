package pipeline

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bloorange/piCtureX/internal/catalog"
	"github.com/bloorange/piCtureX/internal/codec"
	"github.com/bloorange/piCtureX/internal/models"
	"github.com/bloorange/piCtureX/internal/storage"
	"github.com/bloorange/piCtureX/internal/transform"
)

// MockCatalog is a mock implementation of catalog.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Create(ctx context.Context, img *models.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *MockCatalog) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Image, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockCatalog) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Image, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockCatalog) Search(ctx context.Context, ownerID uuid.UUID, keyword string, start, end *time.Time) ([]*models.Image, error) {
	args := m.Called(ctx, ownerID, keyword, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockCatalog) ListByOwnerAndTag(ctx context.Context, ownerID uuid.UUID, tagName string) ([]*models.Image, error) {
	args := m.Called(ctx, ownerID, tagName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Image), args.Error(1)
}

func (m *MockCatalog) AttachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error) {
	args := m.Called(ctx, id, ownerID, tagName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockCatalog) DetachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error) {
	args := m.Called(ctx, id, ownerID, tagName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockCatalog) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type testEnv struct {
	svc       *Service
	cat       *MockCatalog
	store     *storage.DiskStore
	uploadDir string
	thumbDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	uploadDir := filepath.Join(base, "uploads")
	thumbDir := filepath.Join(base, "thumbs")
	store, err := storage.NewDiskStore(uploadDir, thumbDir)
	require.NoError(t, err)

	cat := new(MockCatalog)
	return &testEnv{
		svc:       NewService(store, cat, zap.NewNop(), 200, 200),
		cat:       cat,
		store:     store,
		uploadDir: uploadDir,
		thumbDir:  thumbDir,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	data, err := codec.Encode(img, "png")
	require.NoError(t, err)
	return data
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

// seedAsset writes a source file to the store and returns a catalog
// record pointing at it.
func seedAsset(t *testing.T, env *testEnv, ownerID uuid.UUID, data []byte, ext, displayName string) *models.Image {
	t.Helper()
	storageName, path, size, err := env.store.SaveOriginal(data, ext)
	require.NoError(t, err)
	return &models.Image{
		ID:               uuid.New(),
		StorageName:      storageName,
		OriginalFilename: displayName,
		FilePath:         path,
		Width:            100,
		Height:           50,
		FileSize:         size,
		OwnerID:          ownerID,
		UploadedAt:       time.Now(),
	}
}

func TestIngestStoresImageWithThumbnail(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	data := pngBytes(t, 100, 50)

	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.Ingest(context.Background(), ownerID, "photo.png", data, "a test photo")
	require.NoError(t, err)

	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 50, img.Height)
	assert.True(t, strings.HasSuffix(img.StorageName, ".png"))
	assert.Equal(t, "photo.png", img.OriginalFilename)
	assert.Equal(t, "a test photo", img.Description)
	assert.Equal(t, ownerID, img.OwnerID)
	assert.Equal(t, int64(len(data)), img.FileSize)
	assert.FileExists(t, img.FilePath)
	require.NotEmpty(t, img.ThumbnailPath)
	assert.FileExists(t, img.ThumbnailPath)

	env.cat.AssertExpectations(t)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Ingest(context.Background(), uuid.New(), "photo.png", nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	env.cat.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Zero(t, countFiles(t, env.uploadDir))
}

func TestIngestRejectsNameWithoutExtension(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"", "   ", "noextension", "trailing."} {
		_, err := env.svc.Ingest(context.Background(), uuid.New(), name, []byte("data"), "")
		assert.ErrorIs(t, err, ErrInvalidInput, "name %q", name)
	}
	assert.Zero(t, countFiles(t, env.uploadDir))
}

func TestIngestCleansUpUndecodableUpload(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Ingest(context.Background(), uuid.New(), "fake.png", []byte("not an image at all"), "")
	assert.ErrorIs(t, err, codec.ErrInvalidImage)

	// The just-written file must not be orphaned.
	assert.Zero(t, countFiles(t, env.uploadDir))
	env.cat.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestUnrecognizedExtensionStoredAsJPG(t *testing.T) {
	env := newTestEnv(t)
	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.Ingest(context.Background(), uuid.New(), "photo.webp", pngBytes(t, 10, 10), "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(img.StorageName, ".jpg"))
}

func TestCropCreatesNewAsset(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 100, 50), "png", "photo.png")

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.Crop(context.Background(), ownerID, src.ID, 10, 10, 30, 20)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, img.ID)
	assert.Equal(t, 30, img.Width)
	assert.Equal(t, 20, img.Height)
	assert.Equal(t, "cropped_photo.png", img.OriginalFilename)
	assert.True(t, strings.HasSuffix(img.StorageName, ".png"))
	assert.FileExists(t, img.FilePath)

	// The source asset and its file are untouched.
	assert.FileExists(t, src.FilePath)

	// The stored bytes really are the cropped region.
	data, err := env.store.Read(img.FilePath)
	require.NoError(t, err)
	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 30, decoded.Rect.Dx())
	assert.Equal(t, 20, decoded.Rect.Dy())
}

func TestCropOutOfRangeCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 100, 50), "png", "photo.png")

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)

	_, err := env.svc.Crop(context.Background(), ownerID, src.ID, 10, 10, 200, 10)
	assert.ErrorIs(t, err, transform.ErrInvalidParameters)

	env.cat.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	// Only the seeded source file exists.
	assert.Equal(t, 1, countFiles(t, env.uploadDir))
}

func TestEditForbiddenPropagates(t *testing.T) {
	env := newTestEnv(t)
	ownerB := uuid.New()
	id := uuid.New()

	env.cat.On("Get", mock.Anything, id, ownerB).Return(nil, catalog.ErrForbidden)

	_, err := env.svc.Crop(context.Background(), ownerB, id, 0, 0, 10, 10)
	assert.ErrorIs(t, err, catalog.ErrForbidden)
}

func TestEditSourceFileMissing(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 100, 50), "png", "photo.png")
	require.NoError(t, env.store.Remove(src.FilePath))

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)

	_, err := env.svc.AdjustBrightness(context.Background(), ownerID, src.ID, 1.5)
	assert.ErrorIs(t, err, ErrSourceFileMissing)
}

func TestAdjustBrightnessZeroCrushesToBlack(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 20, 10), "png", "photo.png")

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.AdjustBrightness(context.Background(), ownerID, src.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, 20, img.Width)
	assert.Equal(t, 10, img.Height)
	assert.Equal(t, "brightness_photo.png", img.OriginalFilename)

	data, err := env.store.Read(img.FilePath)
	require.NoError(t, err)
	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			px := decoded.NRGBAAt(x, y)
			require.Equal(t, uint8(0), px.R)
			require.Equal(t, uint8(0), px.G)
			require.Equal(t, uint8(0), px.B)
		}
	}
}

func TestAdjustContrastCreatesNewAsset(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 40, 30), "png", "photo.png")

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.AdjustContrast(context.Background(), ownerID, src.ID, 120)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, img.ID)
	assert.Equal(t, "contrast_photo.png", img.OriginalFilename)
	assert.FileExists(t, img.FilePath)
	assert.NotEmpty(t, img.ThumbnailPath)
}

func TestRepeatedEditsOfUnknownExtensionConvergeToJPG(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	// Stored under a non-whitelisted extension: normalization falls back
	// to jpg on the first edit and stays there.
	src := seedAsset(t, env, ownerID, pngBytes(t, 20, 20), "webp", "photo.webp")

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Create", mock.Anything, mock.AnythingOfType("*models.Image")).Return(nil)

	img, err := env.svc.AdjustBrightness(context.Background(), ownerID, src.ID, 1.2)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(img.StorageName, ".jpg"))
}

func TestDeleteRemovesFilesAndRecord(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 30, 30), "png", "photo.png")

	thumbPath, err := env.store.SaveThumbnail([]byte("thumb"), src.StorageName)
	require.NoError(t, err)
	src.ThumbnailPath = thumbPath

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Delete", mock.Anything, src.ID, ownerID).Return(nil)

	require.NoError(t, env.svc.Delete(context.Background(), ownerID, src.ID))

	assert.NoFileExists(t, src.FilePath)
	assert.NoFileExists(t, thumbPath)
	env.cat.AssertExpectations(t)
}

func TestDeleteUnknownAsset(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	id := uuid.New()

	env.cat.On("Get", mock.Anything, id, ownerID).Return(nil, catalog.ErrNotFound)

	err := env.svc.Delete(context.Background(), ownerID, id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	env.cat.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteToleratesAlreadyAbsentFiles(t *testing.T) {
	env := newTestEnv(t)
	ownerID := uuid.New()
	src := seedAsset(t, env, ownerID, pngBytes(t, 30, 30), "png", "photo.png")
	require.NoError(t, env.store.Remove(src.FilePath))

	env.cat.On("Get", mock.Anything, src.ID, ownerID).Return(src, nil)
	env.cat.On("Delete", mock.Anything, src.ID, ownerID).Return(nil)

	assert.NoError(t, env.svc.Delete(context.Background(), ownerID, src.ID))
}
