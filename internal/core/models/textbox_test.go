package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTextBoxDefaults(t *testing.T) {
	box := NewTextBox(2, -3, 45)
	assert.Equal(t, [3]float64{2, DefaultTextBoxHeight, -3}, box.Position)
	assert.Equal(t, 45.0, box.RotationDeg)
	assert.Equal(t, "Text", box.Text)
	assert.Equal(t, "#ffffff", box.Background)
	assert.Equal(t, box, box.Normalize())
}

func TestTextBoxPatchApply(t *testing.T) {
	box := NewTextBox(0, 0, 0)
	text, bg, width, depth := "hello", "", 0.05, -1.0

	got := TextBoxPatch{Text: &text, Background: &bg, BoxWidth: &width, BoxDepth: &depth}.Apply(box)
	assert.Equal(t, "hello", got.Text)
	assert.Empty(t, got.Background)
	assert.Equal(t, MinTextBoxWidth, got.BoxWidth)
	assert.Equal(t, MinTextBoxDepth, got.BoxDepth)
	assert.Equal(t, box.BoxHeight, got.BoxHeight)
	assert.Equal(t, box.Color, got.Color)

	assert.Equal(t, box, TextBoxPatch{}.Apply(box))
}
