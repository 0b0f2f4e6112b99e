package storage

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/zeusync/planar/internal/core/models"
)

func newTextBox(box models.TextBox) models.TextBox {
	box = box.Normalize()
	box.ID = uuid.NewString()
	return box
}

func patchTextBox(boxes map[string]models.TextBox, id string, patch models.TextBoxPatch) (models.TextBox, error) {
	box, ok := boxes[id]
	if !ok {
		return models.TextBox{}, fmt.Errorf("%w: %s", ErrTextBoxNotFound, id)
	}
	box = patch.Apply(box)
	box.ID = id
	return box, nil
}

// sortedTextBoxes lists boxes ordered by id.
func sortedTextBoxes(boxes map[string]models.TextBox) []models.TextBox {
	out := make([]models.TextBox, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
