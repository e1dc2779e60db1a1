package txt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparse/pkg/models"
)

func TestExtract_CleanText(t *testing.T) {
	doc := &models.Document{
		Name: "notes.txt",
		Data: []byte("The quarterly report covers revenue and expenses in detail."),
	}

	result, err := NewExtractor().Extract(context.Background(), doc, models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Equal(t, string(doc.Data), result.Text)
	assert.Equal(t, sourceName, result.Source)
	assert.InDelta(t, 1.0, result.Score, 0.001)
	assert.Equal(t, 9, result.Meta[models.MetaWordCount])
}

func TestExtract_EmptyFileIsNotAnError(t *testing.T) {
	doc := &models.Document{Name: "empty.txt", Data: []byte{}}

	result, err := NewExtractor().Extract(context.Background(), doc, models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.Equal(t, 0, result.Meta[models.MetaWordCount])
}

func TestExtract_InvalidUTF8LowersScore(t *testing.T) {
	clean := &models.Document{Name: "a.txt", Data: []byte("some perfectly ordinary text here")}
	mangled := &models.Document{Name: "b.txt", Data: []byte("some perfectly ordinary text here \xff\xfe\xff\xfe\xff\xfe\xff\xfe")}

	cleanResult, err := NewExtractor().Extract(context.Background(), clean, models.DefaultParseOptions())
	require.NoError(t, err)
	mangledResult, err := NewExtractor().Extract(context.Background(), mangled, models.DefaultParseOptions())
	require.NoError(t, err)

	assert.Less(t, mangledResult.Score, cleanResult.Score)
}

func TestExtract_NoContentLoaded(t *testing.T) {
	doc := &models.Document{Name: "missing.txt"}

	result, err := NewExtractor().Extract(context.Background(), doc, models.DefaultParseOptions())

	require.Error(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, models.CodeTxtParseError, result.Error.Code)
	assert.False(t, result.Error.Actionable)
	assert.Equal(t, sourceFailed, result.Source)
}
