package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

const page = `<!DOCTYPE html>
<html>
<head><title>MRI &amp; You</title><style>body { color: red; }</style></head>
<body>
<nav>Home | About</nav>
<h1>Magnetic Resonance Imaging</h1>
<p>MRI uses magnets,<br>not radiation.</p>
<!-- hidden note -->
<script>track();</script>
<ul><li>Safe for most patients</li><li>Noisy</li></ul>
</body>
</html>`

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".html", ".htm"}, New().Extensions())
}

func TestNormalise(t *testing.T) {
	got, err := New().Normalise(context.Background(), domain.SourceFile{Path: "mri.html", Content: []byte(page)})

	require.NoError(t, err)
	assert.Equal(t, "MRI & You", got.Title)
	assert.Equal(t, "html", got.Metadata["format"])
	assert.Equal(t,
		"Magnetic Resonance Imaging\nMRI uses magnets,\nnot radiation.\nSafe for most patients\nNoisy",
		got.Content)
}

func TestNormalise_TitleFallbacks(t *testing.T) {
	withH1 := []byte("<body><h1>Lab <em>Panels</em></h1><p>x</p></body>")
	got, err := New().Normalise(context.Background(), domain.SourceFile{Path: "a.html", Content: withH1})
	require.NoError(t, err)
	assert.Equal(t, "Lab Panels", got.Title)

	got, err = New().Normalise(context.Background(), domain.SourceFile{Path: "ultrasound_basics.htm", Content: []byte("<p>x</p>")})
	require.NoError(t, err)
	assert.Equal(t, "ultrasound basics", got.Title)
}

func TestStrip_Entities(t *testing.T) {
	assert.Equal(t, "5 < 10 mg", Strip("<p>5 &lt; 10&nbsp;mg</p>"))
}
