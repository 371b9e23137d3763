package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

var vocab = []model.Compliance{
	{ID: 1, Value: "Jogue com responsabilidade", Type: model.ResponsibleGamblingAdvisement},
	{ID: 2, Value: "Proibido para menores de 18 anos", Type: model.LegalAgeAdvisement},
	{ID: 3, Value: "Bônus de boas-vindas", Type: model.BonusIncentive},
}

func TestLines_PhraseSplitAcrossLines(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)

	lines := []string{"Jogue", "com responsabilidade", "sempre"}
	got := m.Lines(lines, vocab)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.GreaterOrEqual(t, m.Score("jogue com responsabilidade", "jogue com responsabilidade"), DefaultThreshold)
}

func TestLines_AccentsAndCaseIgnored(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	got := m.Lines([]string{"BONUS DE BOAS-VINDAS ATÉ R$500"}, vocab)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestLines_NoMatch(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	assert.Empty(t, m.Lines([]string{"Apostas esportivas", "Cassino ao vivo"}, vocab))
	assert.Empty(t, m.Lines(nil, vocab))
	assert.Empty(t, m.Lines([]string{"Jogue com responsabilidade"}, nil))
}

func TestLines_ExactSubstringFallback(t *testing.T) {
	m := New(zap.NewNop(), 0.99)
	// texto longo demais para qualquer janela atingir 0.99
	lines := []string{"a", "b", "termos: proibido para menores de 18 anos, consulte o regulamento completo", "c"}
	got := m.Lines(lines, vocab)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestLines_OrderInsensitiveAndDeterministic(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	lines := []string{"18+", "Proibido para", "menores de 18 anos", "Jogue com", "responsabilidade", "bônus"}
	rev := make([]string, len(lines))
	for i := range lines {
		rev[len(lines)-1-i] = lines[i]
	}

	forward := m.Lines(lines, vocab)
	backward := m.Lines(rev, vocab)
	assert.Equal(t, forward, backward)
	for i := 0; i < 5; i++ {
		assert.Equal(t, forward, m.Lines(lines, vocab))
	}
}

func TestMatch_SkipsEmptyImagesAndDedups(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	unit := &model.OCR{ID: 7, Images: []model.Image{
		{ID: 1, Hash: "a", Content: nil},
		{ID: 2, Hash: "b", Content: []string{"Jogue com responsabilidade"}},
		{ID: 3, Hash: "c", Content: []string{"jogue com", "responsabilidade"}},
		{ID: 4, Hash: "d", Content: []string{}},
	}}
	got := m.Match(unit, vocab)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

type fakeStore struct {
	unit  *model.OCR
	err   error
	saved map[int64][]int64
}

func (f *fakeStore) GetOCR(_ context.Context, id int64) (*model.OCR, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.unit, nil
}

func (f *fakeStore) SetOCRCompliances(_ context.Context, ocrID int64, ids []int64) error {
	if f.saved == nil {
		f.saved = map[int64][]int64{}
	}
	f.saved[ocrID] = ids
	return nil
}

func TestApply_OverwritesComplianceSet(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	store := &fakeStore{
		unit:  &model.OCR{ID: 9, Images: []model.Image{{ID: 1, Content: []string{"Proibido para menores de 18 anos"}}}},
		saved: map[int64][]int64{9: {1, 3}},
	}

	got, err := m.Apply(context.Background(), store, 9, vocab)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []int64{2}, store.saved[9])
}

func TestApply_LoadError(t *testing.T) {
	m := New(zap.NewNop(), DefaultThreshold)
	_, err := m.Apply(context.Background(), &fakeStore{err: model.ErrNotFound}, 1, vocab)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
