package models

import "math"

// Minimum text box dimensions; smaller values are raised to these.
const (
	MinTextBoxWidth  = 0.2
	MinTextBoxHeight = 0.2
	MinTextBoxDepth  = 0.02
)

// TextBox is a free-standing text annotation placed in the scene. It takes no
// part in collision.
type TextBox struct {
	ID          string     `json:"id" yaml:"id"`
	Position    [3]float64 `json:"position" yaml:"position"`
	RotationDeg float64    `json:"rotationDeg" yaml:"rotation_deg"`
	Text        string     `json:"text" yaml:"text"`
	Color       string     `json:"color" yaml:"color"`
	// Background is empty for a transparent box.
	Background string  `json:"background,omitempty" yaml:"background,omitempty"`
	FontSize   float64 `json:"fontSize" yaml:"font_size"`
	BoxWidth   float64 `json:"boxWidth" yaml:"box_width"`
	BoxHeight  float64 `json:"boxHeight" yaml:"box_height"`
	BoxDepth   float64 `json:"boxDepth" yaml:"box_depth"`
}

// DefaultTextBoxHeight is the height new boxes are placed at above the ground.
const DefaultTextBoxHeight = 1.2

// NewTextBox is a box with the default look, placed at (x, DefaultTextBoxHeight, z).
func NewTextBox(x, z, rotationDeg float64) TextBox {
	return TextBox{
		Position:    [3]float64{x, DefaultTextBoxHeight, z},
		RotationDeg: rotationDeg,
		Text:        "Text",
		Color:       "#000000",
		Background:  "#ffffff",
		FontSize:    0.3,
		BoxWidth:    3,
		BoxHeight:   1,
		BoxDepth:    0.1,
	}
}

// TextBoxPatch is a partial update; nil fields are left unchanged.
type TextBoxPatch struct {
	Position    *[3]float64 `json:"position,omitempty"`
	RotationDeg *float64    `json:"rotationDeg,omitempty"`
	Text        *string     `json:"text,omitempty"`
	Color       *string     `json:"color,omitempty"`
	Background  *string     `json:"background,omitempty"`
	FontSize    *float64    `json:"fontSize,omitempty"`
	BoxWidth    *float64    `json:"boxWidth,omitempty"`
	BoxHeight   *float64    `json:"boxHeight,omitempty"`
	BoxDepth    *float64    `json:"boxDepth,omitempty"`
}

// Apply returns box with the patch applied and its dimensions normalized.
func (p TextBoxPatch) Apply(box TextBox) TextBox {
	if p.Position != nil {
		box.Position = *p.Position
	}
	if p.RotationDeg != nil {
		box.RotationDeg = *p.RotationDeg
	}
	if p.Text != nil {
		box.Text = *p.Text
	}
	if p.Color != nil {
		box.Color = *p.Color
	}
	if p.Background != nil {
		box.Background = *p.Background
	}
	if p.FontSize != nil {
		box.FontSize = *p.FontSize
	}
	if p.BoxWidth != nil {
		box.BoxWidth = *p.BoxWidth
	}
	if p.BoxHeight != nil {
		box.BoxHeight = *p.BoxHeight
	}
	if p.BoxDepth != nil {
		box.BoxDepth = *p.BoxDepth
	}
	return box.Normalize()
}

// Normalize raises every dimension to its minimum.
func (b TextBox) Normalize() TextBox {
	b.BoxWidth = math.Max(MinTextBoxWidth, b.BoxWidth)
	b.BoxHeight = math.Max(MinTextBoxHeight, b.BoxHeight)
	b.BoxDepth = math.Max(MinTextBoxDepth, b.BoxDepth)
	if b.FontSize <= 0 {
		b.FontSize = NewTextBox(0, 0, 0).FontSize
	}
	return b
}
