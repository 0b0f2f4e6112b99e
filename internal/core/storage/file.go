package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
)

var _ interfaces.SceneStore = (*FileStore)(nil)

type fileDocument struct {
	Poses     map[models.BodyID]models.Pose `yaml:"poses"`
	TextBoxes map[string]models.TextBox     `yaml:"text_boxes,omitempty"`
}

// FileStore keeps all poses and text boxes in one YAML document. Every write
// rewrites the document through a temporary file and a rename so readers
// never observe a partial write.
type FileStore struct {
	path  string
	mu    sync.Mutex
	poses map[models.BodyID]models.Pose
	texts map[string]models.TextBox
}

// OpenFileStore loads path, treating a missing file as an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		poses: make(map[models.BodyID]models.Pose),
		texts: make(map[string]models.TextBox),
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read pose store: %w", err)
	}
	var doc fileDocument
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	for id, p := range doc.Poses {
		s.poses[id] = p
	}
	for id, b := range doc.TextBoxes {
		b.ID = id
		s.texts[id] = b
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(ctx context.Context, id models.BodyID) (models.Pose, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Pose{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.poses[id]
	return p, ok, nil
}

func (s *FileStore) Set(ctx context.Context, id models.BodyID, pose models.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.poses[id]
	s.poses[id] = merge(prev, pose)
	if err := s.writeLocked(); err != nil {
		if existed {
			s.poses[id] = prev
		} else {
			delete(s.poses, id)
		}
		return err
	}
	return nil
}

func (s *FileStore) All(ctx context.Context) (map[models.BodyID]models.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.BodyID]models.Pose, len(s.poses))
	for id, p := range s.poses {
		out[id] = p
	}
	return out, nil
}

func (s *FileStore) TextBoxes(ctx context.Context) ([]models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedTextBoxes(s.texts), nil
}

func (s *FileStore) CreateTextBox(ctx context.Context, box models.TextBox) (models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return models.TextBox{}, err
	}
	box = newTextBox(box)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[box.ID] = box
	if err := s.writeLocked(); err != nil {
		delete(s.texts, box.ID)
		return models.TextBox{}, err
	}
	return box, nil
}

func (s *FileStore) UpdateTextBox(ctx context.Context, id string, patch models.TextBoxPatch) (models.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return models.TextBox{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	box, err := patchTextBox(s.texts, id, patch)
	if err != nil {
		return models.TextBox{}, err
	}
	prev := s.texts[id]
	s.texts[id] = box
	if err = s.writeLocked(); err != nil {
		s.texts[id] = prev
		return models.TextBox{}, err
	}
	return box, nil
}

func (s *FileStore) DeleteTextBox(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.texts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTextBoxNotFound, id)
	}
	delete(s.texts, id)
	if err := s.writeLocked(); err != nil {
		s.texts[id] = prev
		return err
	}
	return nil
}

func (s *FileStore) writeLocked() error {
	data, err := yaml.Marshal(fileDocument{Poses: s.poses, TextBoxes: s.texts})
	if err != nil {
		return fmt.Errorf("encode pose store: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".poses-*.yaml")
	if err != nil {
		return fmt.Errorf("write pose store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write pose store: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write pose store: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write pose store: %w", err)
	}
	return nil
}
