package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentPreservesLines(t *testing.T) {
	user := "uniform sampler2D tex;\nvarying vec3 pos;\nvoid main() {\n  gl_FragColor = texture2D(tex, pos.xy);\n}"
	out := Fragment(user)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, PreambleLines+5)
	assert.Equal(t, "#version 300 es", lines[0])
	assert.Contains(t, lines[2], "out highp vec4 "+FragColor+";")
	assert.Equal(t, "in vec3 pos;", lines[PreambleLines+1])
	assert.Equal(t, "  "+FragColor+" = texture(tex, pos.xy);", lines[PreambleLines+3])
}

func TestFragmentModernSource(t *testing.T) {
	user := "#version 300 es\nout vec4 color;\nvoid main() { color = texture(s, vec2(0)); }"
	out := Fragment(user)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, PreambleLines+3)
	assert.Equal(t, "", lines[PreambleLines])
	assert.NotContains(t, out, FragColor)
	assert.Equal(t, 1, strings.Count(out, "#version"))
}

func TestFragmentWithoutFragColor(t *testing.T) {
	out := Fragment("void main() {}")
	assert.NotContains(t, out, FragColor)
}

func TestUpgradeLeavesCommentsAndIdentifiers(t *testing.T) {
	l, replaced := upgradeLine("float my_texture2D = 1.0; // texture2D gl_FragColor")
	assert.False(t, replaced)
	assert.Equal(t, "float my_texture2D = 1.0; // texture2D gl_FragColor", l)

	l, replaced = upgradeLine("gl_FragData[0] = textureCube(c, d);")
	assert.True(t, replaced)
	assert.Equal(t, FragColor+" = texture(c, d);", l)

	l, _ = upgradeLine("vec4 c = texture2DLod(s, uv, 0.0);")
	assert.Equal(t, "vec4 c = textureLod(s, uv, 0.0);", l)
}

func TestPostSourcesUpgrade(t *testing.T) {
	for _, src := range []string{Copy, Gamma, SRGB} {
		out := Fragment(src)
		assert.NotContains(t, out, "gl_FragColor")
		assert.NotContains(t, out, "texture2D")
		assert.Contains(t, out, FragColor)
	}
}
