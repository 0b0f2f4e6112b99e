package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/systems/physics"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of the YAML configuration document.
type Config struct {
	Log    LogConfig    `json:"log" yaml:"log"`
	Scene  SceneConfig  `json:"scene" yaml:"scene"`
	Bodies []BodyConfig `json:"bodies" yaml:"bodies"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Server ServerConfig `json:"server" yaml:"server"`
	Viewer ViewerConfig `json:"viewer" yaml:"viewer"`
}

type LogConfig struct {
	Level    string `json:"level" yaml:"level"`
	Encoding string `json:"encoding" yaml:"encoding"`
	// Output is a file path or "stderr"/"stdout".
	Output string `json:"output" yaml:"output"`
}

type SceneConfig struct {
	Bounds             physics.Bounds `json:"bounds" yaml:"bounds"`
	ContactMargin      float64        `json:"contact_margin" yaml:"contact_margin"`
	Iterations         int            `json:"iterations" yaml:"iterations"`
	NoopThreshold      float64        `json:"noop_threshold" yaml:"noop_threshold"`
	TargetMaxDimension float64        `json:"target_max_dimension" yaml:"target_max_dimension"`
	ShrinkFactor       float64        `json:"shrink_factor" yaml:"shrink_factor"`
}

// BodyConfig describes one body: its geometry and the pose seeded into an
// empty store.
type BodyConfig struct {
	ID       models.BodyID `json:"id" yaml:"id"`
	Model    string        `json:"model" yaml:"model"`
	Size     physics.Size3 `json:"size" yaml:"size"`
	Position physics.Vec2  `json:"position" yaml:"position"`
	YawDeg   float64       `json:"yaw_deg" yaml:"yaw_deg"`
}

type StoreConfig struct {
	// Kind is "memory" or "file".
	Kind     string        `json:"kind" yaml:"kind"`
	Path     string        `json:"path" yaml:"path"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	ListenAddr   string        `json:"listen_addr" yaml:"listen_addr"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ReadLimit    int64         `json:"read_limit" yaml:"read_limit"`
}

type ViewerConfig struct {
	CellsPerUnit float64       `json:"cells_per_unit" yaml:"cells_per_unit"`
	MoveStep     float64       `json:"move_step" yaml:"move_step"`
	RotateStep   float64       `json:"rotate_step" yaml:"rotate_step"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`
	// DragRelease ends a keyboard drag after this long without a move key.
	DragRelease time.Duration `json:"drag_release" yaml:"drag_release"`
}

// Default returns the reference deployment: two bodies on a [-10,10] square.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Encoding: "json", Output: "stderr"},
		Scene: SceneConfig{
			Bounds:             physics.DefaultBounds(),
			Iterations:         resolver.DefaultIterations,
			NoopThreshold:      resolver.DefaultNoopThreshold,
			TargetMaxDimension: 2.5,
			ShrinkFactor:       0.95,
		},
		Bodies: []BodyConfig{
			{ID: models.BodyA, Model: "White_3DB24.glb", Size: physics.Size3{X: 2, Y: 1.2, Z: 1.6}},
			{ID: models.BodyB, Model: "White_B33.glb", Size: physics.Size3{X: 1.6, Y: 2, Z: 1.6}, Position: physics.V2(4, 0)},
		},
		Store: StoreConfig{Kind: "memory", Debounce: 180 * time.Millisecond, Timeout: 5 * time.Second},
		Server: ServerConfig{
			ListenAddr:   "127.0.0.1:8080",
			TickInterval: 16 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			ReadLimit:    64 * 1024,
		},
		Viewer: ViewerConfig{
			CellsPerUnit: 2,
			MoveStep:     0.25,
			RotateStep:   15,
			TickInterval: 16 * time.Millisecond,
			DragRelease:  250 * time.Millisecond,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return &cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func LoadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !c.Scene.Bounds.Valid() {
		return fmt.Errorf("%w: scene bounds min exceeds max", ErrInvalidConfig)
	}
	if c.Scene.ContactMargin < 0 {
		return fmt.Errorf("%w: contact margin must not be negative", ErrInvalidConfig)
	}
	if c.Scene.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative", ErrInvalidConfig)
	}
	if c.Scene.ShrinkFactor < 0 || c.Scene.ShrinkFactor > 1 {
		return fmt.Errorf("%w: shrink factor must be within [0,1]", ErrInvalidConfig)
	}
	if len(c.Bodies) != 2 {
		return fmt.Errorf("%w: exactly two bodies are required, got %d", ErrInvalidConfig, len(c.Bodies))
	}
	for i, b := range c.Bodies {
		if b.ID == "" {
			return fmt.Errorf("%w: body %d has no id", ErrInvalidConfig, i)
		}
		if b.Size.X < 0 || b.Size.Y < 0 || b.Size.Z < 0 {
			return fmt.Errorf("%w: body %s has a negative size", ErrInvalidConfig, b.ID)
		}
	}
	if c.Bodies[0].ID == c.Bodies[1].ID {
		return fmt.Errorf("%w: duplicate body id %s", ErrInvalidConfig, c.Bodies[0].ID)
	}
	switch c.Store.Kind {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: file store requires a path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, c.Store.Kind)
	}
	if c.Store.Debounce < 0 {
		return fmt.Errorf("%w: store debounce must not be negative", ErrInvalidConfig)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("%w: store timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Resolver maps the scene section onto resolver settings.
func (c *Config) Resolver() resolver.Config {
	return resolver.Config{
		Bounds:        c.Scene.Bounds,
		Margin:        c.Scene.ContactMargin,
		Iterations:    c.Scene.Iterations,
		NoopThreshold: c.Scene.NoopThreshold,
	}
}

// Body looks up a body section by id.
func (c *Config) Body(id models.BodyID) (BodyConfig, bool) {
	for _, b := range c.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyConfig{}, false
}

// DefaultPoses is the layout seeded into an empty pose store.
func (c *Config) DefaultPoses() map[models.BodyID]models.Pose {
	out := make(map[models.BodyID]models.Pose, len(c.Bodies))
	for _, b := range c.Bodies {
		out[b.ID] = models.PoseFromPlanar(b.Position, physics.DegToRad(b.YawDeg), b.Model)
	}
	return out
}

// BodySpecs lists both bodies in scene order with their seed poses.
func (c *Config) BodySpecs() [2]scene.BodySpec {
	poses := c.DefaultPoses()
	var specs [2]scene.BodySpec
	for i, b := range c.Bodies[:2] {
		specs[i] = scene.BodySpec{ID: b.ID, Default: poses[b.ID]}
	}
	return specs
}

// StaticBounds serves the configured raw model sizes.
func (c *Config) StaticBounds() scene.StaticBounds {
	out := make(scene.StaticBounds, len(c.Bodies))
	for _, b := range c.Bodies {
		out[b.ID] = b.Size
	}
	return out
}

func (c *Config) Geometry() scene.Geometry {
	return scene.Geometry{
		TargetMaxDimension: c.Scene.TargetMaxDimension,
		ShrinkFactor:       c.Scene.ShrinkFactor,
	}
}
