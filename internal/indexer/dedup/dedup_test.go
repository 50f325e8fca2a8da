package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
)

func buildIndex(t *testing.T, stopWords string, docs map[int]string) *index.InvertedIndex {
	t.Helper()
	sw, err := tokenizer.ParseStopWords(stopWords)
	require.NoError(t, err)
	ix := index.New(sw)
	for id, text := range docs {
		require.NoError(t, ix.AddDocument(id, text, index.StatusActual, []int{1, 2}))
	}
	return ix
}

func TestRemoveDuplicatesKeepsLowestID(t *testing.T) {
	ix := buildIndex(t, "", map[int]string{
		1: "a b c",
		2: "a b c",
		3: "a b d",
	})

	removed := RemoveDuplicates(context.Background(), ix)

	assert.Equal(t, []int{2}, removed)
	assert.Equal(t, []int{1, 3}, ix.LiveIDs())
}

func TestRemoveDuplicatesIgnoresFrequenciesAndStopWords(t *testing.T) {
	ix := buildIndex(t, "and with", map[int]string{
		1: "funny pet and nasty rat",
		2: "funny pet with curly hair",
		3: "funny pet with curly hair",
		4: "funny pet and curly hair",
		5: "funny funny pet and nasty nasty rat",
		6: "funny pet and not very nasty rat",
		7: "very nasty rat and not very funny pet",
		8: "pet with rat and rat and rat",
		9: "nasty rat with curly hair",
	})

	removed := RemoveDuplicates(context.Background(), ix)

	assert.Equal(t, []int{3, 4, 5, 7}, removed)
	assert.Equal(t, []int{1, 2, 6, 8, 9}, ix.LiveIDs())
}

func TestFindDuplicatesDoesNotMutate(t *testing.T) {
	ix := buildIndex(t, "", map[int]string{
		10: "x y",
		4:  "y x",
	})
	assert.Equal(t, []int{10}, FindDuplicates(ix))
	assert.Equal(t, []int{4, 10}, ix.LiveIDs())
}

func TestEmptyTermSetsAreDuplicatesOfEachOther(t *testing.T) {
	ix := buildIndex(t, "the", map[int]string{
		1: "the",
		2: "",
		3: "cat",
	})
	assert.Equal(t, []int{2}, RemoveDuplicates(context.Background(), ix))
}

func TestNoDuplicates(t *testing.T) {
	ix := buildIndex(t, "", map[int]string{1: "a", 2: "b"})
	assert.Empty(t, RemoveDuplicates(context.Background(), ix))
	assert.Equal(t, 2, ix.DocumentCount())
}
