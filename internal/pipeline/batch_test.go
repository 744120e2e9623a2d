package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/domain"
	"ddtft/internal/pipeline"
)

func TestExtractBatch(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.Concurrency = 2
	e := pipeline.New(opts)

	inputs := []pipeline.Input{
		{Text: deliveryNoteText("44,53"), FileName: "ddt.txt"},
		{Text: "", FileName: "empty.txt"},
		{Text: "lorem ipsum", FileName: "unknown.txt"},
		{Text: invoiceText(), FileName: "ft.txt"},
	}
	results := e.ExtractBatch(context.Background(), inputs)
	require.Len(t, results, len(inputs))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, inputs[i].FileName, r.FileName)
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.DocumentTypeDDT, results[0].Document.Type)

	assert.ErrorIs(t, results[1].Err, domain.ErrEmptyInput)
	assert.Nil(t, results[1].Document)

	assert.ErrorIs(t, results[2].Err, domain.ErrUnsupportedDocumentFormat)

	require.NoError(t, results[3].Err)
	assert.Equal(t, domain.DocumentTypeFT, results[3].Document.Type)
}

func TestExtractBatch_CancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newEngine().ExtractBatch(ctx, []pipeline.Input{
		{Text: deliveryNoteText("44,53")},
		{Text: invoiceText()},
	})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, domain.ErrExtractionTimeout)
		assert.Nil(t, r.Document)
	}
}

func TestExtractBatch_Empty(t *testing.T) {
	assert.Empty(t, newEngine().ExtractBatch(context.Background(), nil))
}
