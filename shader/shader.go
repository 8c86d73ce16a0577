// Package shader holds the fixed GLSL sources of a session and composes user
// fragment shaders into complete ESSL 3.00 sources.
package shader

import (
	"regexp"
	"strings"
)

const version = "#version 300 es"

// FragColor replaces gl_FragColor in upgraded WebGL1 shaders.
const FragColor = "glslbench_FragColor"

// Vertex is the full-screen quad vertex shader. It forwards the clip space
// position to the fragment stage as pos.
const Vertex = `#version 300 es
precision highp float;
precision highp int;
layout(location = 0) in vec3 position;
out vec3 pos;
void main() {
    pos = position;
    gl_Position = vec4(position, 1.0);
}
`

// PreambleLines is the number of lines Fragment puts in front of user code.
const PreambleLines = 3

// Copy draws the accumulation target to the surface unchanged.
const Copy = `
uniform sampler2D source;
uniform vec2 resolution;
void main() {
  gl_FragColor = texture2D(source, gl_FragCoord.xy / resolution.xy);
}`

// Gamma applies pow(c, 1/gamma) on the way to the surface.
const Gamma = `
uniform sampler2D source;
uniform vec2 resolution;
uniform float gamma;
void main() {
  vec4 src = texture2D(source, gl_FragCoord.xy / resolution.xy);
  gl_FragColor = vec4(pow(src.xyz, vec3(1,1,1) / gamma), src.w);
}
`

// SRGB applies the piecewise sRGB transfer function.
const SRGB = `
uniform sampler2D source;
uniform vec2 resolution;
void main() {
  vec4 src = texture2D(source, gl_FragCoord.xy / resolution.xy);
  vec3 cutoff = vec3(lessThan(src.xyz, vec3(0.0031308)));
  vec3 higher = vec3(1.055)*pow(src.xyz, vec3(1.0/2.4)) - vec3(0.055);
  vec3 lower = src.xyz * vec3(12.92);
  gl_FragColor = vec4(higher * (vec3(1.0) - cutoff) + lower * cutoff, src.w);
}
`

var (
	versionLine = regexp.MustCompile(`^\s*#\s*version\s+300\s+es\b`)
	fragColor   = regexp.MustCompile(`\bgl_FragColor\b|\bgl_FragData\s*\[\s*0\s*\]`)

	// WebGL1 builtins renamed in ESSL 3.00.
	renames = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\btexture2DLod\b|\btextureCubeLod\b`), "textureLod"},
		{regexp.MustCompile(`\btexture2DProj\b`), "textureProj"},
		{regexp.MustCompile(`\btexture2D\b|\btextureCube\b`), "texture"},
		{regexp.MustCompile(`\bvarying\b`), "in"},
	}
)

// Fragment composes the source handed to the compiler: a precision preamble
// of PreambleLines lines followed by user. WebGL1 sources are upgraded to
// ESSL 3.00 in place; no line is added or removed, so line k of user is line
// k+PreambleLines of the result. Sources starting with "#version 300 es"
// are kept as is apart from blanking that line.
func Fragment(user string) string {
	lines := strings.Split(user, "\n")
	modern := len(lines) > 0 && versionLine.MatchString(lines[0])
	needsOut := false
	if modern {
		lines[0] = ""
	} else {
		for i, l := range lines {
			l, n := upgradeLine(l)
			lines[i] = l
			needsOut = needsOut || n
		}
	}

	var b strings.Builder
	b.WriteString(version)
	b.WriteString("\nprecision highp float;\nprecision highp int;")
	if needsOut {
		b.WriteString(" out highp vec4 " + FragColor + ";")
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func upgradeLine(l string) (string, bool) {
	code, comment := l, ""
	if i := strings.Index(l, "//"); i >= 0 {
		code, comment = l[:i], l[i:]
	}
	replaced := fragColor.MatchString(code)
	if replaced {
		code = fragColor.ReplaceAllString(code, FragColor)
	}
	for _, r := range renames {
		code = r.re.ReplaceAllString(code, r.repl)
	}
	return code + comment, replaced
}
