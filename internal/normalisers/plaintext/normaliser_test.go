package plaintext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt", ".text"}, New().Extensions())
}

func TestNormalise(t *testing.T) {
	file := domain.SourceFile{Path: "notes/blood-count.txt", Content: []byte("\ufeffLine one\r\nLine two\r\n\r\n")}

	got, err := New().Normalise(context.Background(), file)

	require.NoError(t, err)
	assert.Equal(t, "blood count", got.Title)
	assert.Equal(t, "Line one\nLine two", got.Content)
	assert.Equal(t, "plaintext", got.Metadata["format"])
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	_, err := New().Normalise(context.Background(), domain.SourceFile{Path: "bad.txt", Content: []byte{0xff, 0xfe, 0xfd}})

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
