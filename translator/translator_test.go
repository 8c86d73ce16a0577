package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultOriginal(t *testing.T) {
	r := &Result{Names: map[string]string{
		"time":     "_utime",
		"position": "_uposition",
	}}

	name, ok := r.Original("_utime")
	assert.True(t, ok)
	assert.Equal(t, "time", name)

	_, ok = r.Original("gl_FragCoord")
	assert.False(t, ok)
}
