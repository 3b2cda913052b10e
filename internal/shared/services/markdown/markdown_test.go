package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_HTML(t *testing.T) {
	r := NewRenderer()

	out, err := r.HTML("**Unlimited** matters\n\n- e-signatures")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Unlimited</strong>")
	assert.Contains(t, out, "<li>e-signatures</li>")

	out, err = r.HTML("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestRenderer_Text(t *testing.T) {
	r := NewRenderer()
	assert.Equal(t, "comp for Acme", r.Text("<b>comp</b> for Acme"))
}
