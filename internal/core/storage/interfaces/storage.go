package interfaces

import (
	"context"

	"github.com/zeusync/planar/internal/core/models"
)

// PoseStore persists committed body poses. Calls happen outside the
// resolution path and may block on I/O.
type PoseStore interface {
	// Get returns the stored pose; the bool is false when none exists.
	Get(ctx context.Context, id models.BodyID) (models.Pose, bool, error)
	// Set stores pose. An empty Name keeps the stored name.
	Set(ctx context.Context, id models.BodyID, pose models.Pose) error
}

// SnapshotStore can additionally list everything it holds.
type SnapshotStore interface {
	PoseStore

	All(ctx context.Context) (map[models.BodyID]models.Pose, error)
}

// TextBoxStore persists text annotations. Ids are assigned by the store.
type TextBoxStore interface {
	TextBoxes(ctx context.Context) ([]models.TextBox, error)
	CreateTextBox(ctx context.Context, box models.TextBox) (models.TextBox, error)
	UpdateTextBox(ctx context.Context, id string, patch models.TextBoxPatch) (models.TextBox, error)
	DeleteTextBox(ctx context.Context, id string) error
}

// SceneStore holds everything a scene persists.
type SceneStore interface {
	SnapshotStore
	TextBoxStore
}
