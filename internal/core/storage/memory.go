package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
)

var _ interfaces.SceneStore = (*MemoryStore)(nil)

// MemoryStore keeps poses and text boxes in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	poses map[models.BodyID]models.Pose
	texts map[string]models.TextBox
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		poses: make(map[models.BodyID]models.Pose),
		texts: make(map[string]models.TextBox),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id models.BodyID) (models.Pose, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Pose{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.poses[id]
	return p, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, id models.BodyID, pose models.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poses[id] = merge(s.poses[id], pose)
	return nil
}

func (s *MemoryStore) All(ctx context.Context) (map[models.BodyID]models.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.BodyID]models.Pose, len(s.poses))
	for id, p := range s.poses {
		out[id] = p
	}
	return out, nil
}

func (s *MemoryStore) TextBoxes(ctx context.Context) ([]models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedTextBoxes(s.texts), nil
}

func (s *MemoryStore) CreateTextBox(ctx context.Context, box models.TextBox) (models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return models.TextBox{}, err
	}
	box = newTextBox(box)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[box.ID] = box
	return box, nil
}

func (s *MemoryStore) UpdateTextBox(ctx context.Context, id string, patch models.TextBoxPatch) (models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return models.TextBox{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	box, err := patchTextBox(s.texts, id, patch)
	if err != nil {
		return models.TextBox{}, err
	}
	s.texts[id] = box
	return box, nil
}

func (s *MemoryStore) DeleteTextBox(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.texts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTextBoxNotFound, id)
	}
	delete(s.texts, id)
	return nil
}

func merge(stored, incoming models.Pose) models.Pose {
	if incoming.Name == "" {
		incoming.Name = stored.Name
	}
	return incoming
}
