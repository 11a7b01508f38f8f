package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorRateStyle(t *testing.T) {
	tests := []struct {
		pct  float64
		want any
	}{
		{0, ColorSecondary},
		{1, ColorSecondary},
		{5, ColorWarning},
		{10, ColorWarning},
		{10.5, ColorError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorRateStyle(tt.pct).GetForeground(), "pct %v", tt.pct)
	}
}

func TestRenderKey(t *testing.T) {
	out := RenderKey("Q", "Quit")
	assert.Contains(t, out, "<Q>")
	assert.Contains(t, out, "Quit")
}
