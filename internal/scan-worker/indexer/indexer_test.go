package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser/browsertest"
)

var phrases = []string{"Jogue com responsabilidade", "18+"}

func TestScan_SnapshotIsSinglePass(t *testing.T) {
	root := browsertest.NewElement("").Add(
		browsertest.NewElement("Apostas"),
		browsertest.NewElement("Jogue com responsabilidade"),
	)
	sess := &browsertest.Session{Root: root}
	ix := New(zap.NewNop(), phrases)

	els, err := ix.Scan(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, els, 3)
	assert.Equal(t, root.Key(), els[0].Key())

	_, err = ix.Scan(context.Background(), sess)
	assert.ErrorIs(t, err, ErrAlreadyScanned)
}

func TestFilter_ReplacesWorkingSet(t *testing.T) {
	match := browsertest.NewElement("Jogue com responsabilidade")
	other := browsertest.NewElement("Cassino")
	lower := browsertest.NewElement("jogue com responsabilidade")
	root := browsertest.NewElement("").Add(other, match, lower)
	ix := New(zap.NewNop(), phrases)

	_, err := ix.Scan(context.Background(), &browsertest.Session{Root: root})
	require.NoError(t, err)

	kept, err := ix.Filter(context.Background())
	require.NoError(t, err)

	// raiz contém o texto dos filhos; minúsculas não casam nesta etapa
	require.Len(t, kept, 2)
	assert.Equal(t, root.Key(), kept[0].Key())
	assert.Equal(t, match.Key(), kept[1].Key())
	assert.Equal(t, kept, ix.Elements())
}

func TestFilterElements_KeepsWorkingSetAndSkipsStale(t *testing.T) {
	a := browsertest.NewElement("Proibido 18+")
	stale := browsertest.NewElement("18+")
	stale.Err = model.ErrElementStale
	root := browsertest.NewElement("").Add(a, stale)
	ix := New(zap.NewNop(), phrases)

	all, err := ix.Scan(context.Background(), &browsertest.Session{Root: root})
	require.NoError(t, err)

	kids, err := root.Children(context.Background())
	require.NoError(t, err)
	got, err := ix.FilterElements(context.Background(), kids)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.Key(), got[0].Key())
	assert.Len(t, ix.Elements(), len(all))
}

func TestMatches(t *testing.T) {
	ix := New(zap.NewNop(), append([]string{""}, phrases...))
	assert.Equal(t, []string{"Jogue com responsabilidade", "18+"}, ix.Matches("18+ Jogue com responsabilidade"))
	assert.Empty(t, ix.Matches("nada aqui"))
}
