package batch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo/repotest"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

var legalAge = model.Compliance{ID: 2, Value: "Proibido para menores de 18 anos", Type: model.LegalAgeAdvisement}

type fakeOCR struct {
	lines []string
	calls atomic.Int64
}

func (f *fakeOCR) Recognize(context.Context, []byte) ([]string, error) {
	f.calls.Add(1)
	return f.lines, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(8, 4, color.Gray{Y: 0})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRun_IsolatesItemFailures(t *testing.T) {
	var seen atomic.Int64
	s, err := Run(context.Background(), zap.NewNop(), "test", 2, []int{1, 2, 3, 4},
		func(i int) zap.Field { return zap.Int("item", i) },
		func(_ context.Context, i int) error {
			seen.Add(1)
			if i%2 == 0 {
				return errors.New("bad item")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(4), seen.Load())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.OK)
	assert.Equal(t, 2, s.Failed)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := Run(ctx, zap.NewNop(), "test", 1, []int{1, 2},
		func(i int) zap.Field { return zap.Int("item", i) },
		func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.OK)
}

func TestOCRBackfill(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	path, err := files.Put(ctx, "tasks/1-1-0/0.png", pngBytes(t), "image/png")
	require.NoError(t, err)

	store := repotest.NewMemory(legalAge)
	unit := &model.OCR{TaskID: 1}
	require.NoError(t, store.CreateOCR(ctx, unit))
	img := &model.Image{Hash: "h1", Path: path}
	require.NoError(t, store.CreateImage(ctx, img))
	require.NoError(t, store.AddImageOCRs(ctx, img.ID, []int64{unit.ID}))
	lost := &model.Image{Hash: "h2", Path: "tasks/missing.png"}
	require.NoError(t, store.CreateImage(ctx, lost))

	rec := &fakeOCR{lines: []string{"Proibido para menores", "de 18 anos"}}
	s, err := New(zap.NewNop(), store, files, rec, 0, 4).OCRBackfill(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.OK)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []model.Compliance{legalAge}, store.OCRCompliances(unit.ID))

	pending, err := store.ImagesWithoutContent(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, lost.ID, pending[0].ID)
}

func TestDedupImages(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewMemory()
	a := &model.Image{Hash: "same", Path: "a.png"}
	b := &model.Image{Hash: "same", Path: "b.png"}
	c := &model.Image{Hash: "other", Path: "c.png"}
	for _, img := range []*model.Image{a, b, c} {
		require.NoError(t, store.CreateImage(ctx, img))
	}
	require.NoError(t, store.AddImageOCRs(ctx, a.ID, []int64{10}))
	require.NoError(t, store.AddImageOCRs(ctx, b.ID, []int64{10, 11}))
	require.NoError(t, store.SetImageContent(ctx, b.ID, []string{"linha"}))

	s, err := New(zap.NewNop(), store, nil, nil, 0, 4).DedupImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.OK)

	imgs := store.ImageList()
	require.Len(t, imgs, 2)
	assert.Equal(t, a.ID, imgs[0].ID)
	assert.ElementsMatch(t, []int64{10, 11}, imgs[0].OCRIDs)
	assert.Equal(t, []string{"linha"}, imgs[0].Content)
	assert.Equal(t, c.ID, imgs[1].ID)
}

func TestRematch(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewMemory(legalAge)

	hit := &model.OCR{TaskID: 1}
	miss := &model.OCR{TaskID: 1}
	require.NoError(t, store.CreateOCR(ctx, hit))
	require.NoError(t, store.CreateOCR(ctx, miss))

	img := &model.Image{Hash: "h", Path: "x.png"}
	require.NoError(t, store.CreateImage(ctx, img))
	require.NoError(t, store.AddImageOCRs(ctx, img.ID, []int64{hit.ID}))
	require.NoError(t, store.SetImageContent(ctx, img.ID, []string{"PROIBIDO PARA MENORES DE 18 ANOS"}))
	// conjunto antigo é sobrescrito
	require.NoError(t, store.SetOCRCompliances(ctx, miss.ID, []int64{legalAge.ID}))

	s, err := New(zap.NewNop(), store, nil, nil, 0, 4).Rematch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.OK)

	assert.Equal(t, []model.Compliance{legalAge}, store.OCRCompliances(hit.ID))
	assert.Empty(t, store.OCRCompliances(miss.ID))
}
