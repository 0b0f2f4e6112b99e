package server

import (
	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/systems/physics"
)

// Client actions
const (
	ActionSelect    = "select"
	ActionDragStart = "drag_start"
	ActionDrag      = "drag"
	ActionDragEnd   = "drag_end"
	ActionRotate    = "rotate"
	ActionNudge     = "nudge"
	ActionSnap      = "snap"
	ActionState     = "state"

	ActionTextList   = "text_list"
	ActionTextCreate = "text_create"
	ActionTextUpdate = "text_update"
	ActionTextDelete = "text_delete"
)

// Server message types
const (
	MessageState  = "state"
	MessageCommit = "commit"
	MessageError  = "error"
	MessageText   = "text"
	// MessageNotice reports a non-fatal problem, such as a pose that could
	// not be saved.
	MessageNotice = "notice"
)

// Command is a client request. Body defaults to the session's selected body.
// X and Z are where the pointer hits the ground plane; Hit false means the
// pointer missed it and the drag frame is skipped.
type Command struct {
	Action string        `json:"action"`
	Body   models.BodyID `json:"body,omitempty"`
	X      float64       `json:"x,omitempty"`
	Z      float64       `json:"z,omitempty"`
	Hit    *bool         `json:"hit,omitempty"`
	Yaw    float64       `json:"yaw,omitempty"`
	Delta  float64       `json:"delta,omitempty"`

	// TextID and Patch address text boxes. text_create places a default box
	// at (X, Z) turned by Yaw and applies Patch on top.
	TextID string               `json:"textId,omitempty"`
	Patch  *models.TextBoxPatch `json:"patch,omitempty"`
}

func isTextAction(action string) bool {
	switch action {
	case ActionTextList, ActionTextCreate, ActionTextUpdate, ActionTextDelete:
		return true
	}
	return false
}

func (c Command) pointer() (physics.Vec2, bool) {
	return physics.V2(c.X, c.Z), c.Hit == nil || *c.Hit
}

type Message struct {
	Type        string       `json:"type"`
	Frame       uint64       `json:"frame"`
	Bodies      []BodyState  `json:"bodies,omitempty"`
	Overlapping bool         `json:"overlapping,omitempty"`
	Commit      *CommitState `json:"commit,omitempty"`
	Error       string       `json:"error,omitempty"`
	Notice      string       `json:"notice,omitempty"`

	TextBoxes []models.TextBox `json:"textBoxes,omitempty"`
	Events    *EventStats      `json:"events,omitempty"`
}

// EventStats summarises the scene's event bus.
type EventStats struct {
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Errors      uint64 `json:"errors"`
	Subscribers uint64 `json:"subscribers"`
}

type BodyState struct {
	ID       models.BodyID `json:"id"`
	Model    string        `json:"model"`
	Position physics.Vec2  `json:"position"`
	Yaw      float64       `json:"yaw"`
	Half     physics.Vec2  `json:"half"`
	Drag     string        `json:"drag"`
	Rotation string        `json:"rotation"`
	Selected bool          `json:"selected,omitempty"`
}

type CommitState struct {
	Body     models.BodyID `json:"body"`
	Kind     string        `json:"kind"`
	Position physics.Vec2  `json:"position"`
	Yaw      float64       `json:"yaw"`
	Outcome  string        `json:"outcome"`
}

func stateMessage(sc *scene.Scene, selected models.BodyID) Message {
	m := sc.Events().GetMetrics()
	msg := Message{
		Type:        MessageState,
		Frame:       sc.Frame(),
		Overlapping: sc.Overlapping(),
		Events: &EventStats{
			Published:   m.Published,
			Delivered:   m.DeliveredHandlers,
			Errors:      m.Errors,
			Subscribers: m.SubscribersActive,
		},
	}
	for _, b := range sc.Bodies() {
		half, _ := b.HalfExtents()
		msg.Bodies = append(msg.Bodies, BodyState{
			ID:       b.ID(),
			Model:    b.Model(),
			Position: b.Pose().Position,
			Yaw:      b.Pose().YawDegrees(),
			Half:     half,
			Drag:     b.DragPhase().String(),
			Rotation: b.RotationPhase().String(),
			Selected: b.ID() == selected,
		})
	}
	return msg
}

func commitMessage(ev scene.CommitEvent) Message {
	return Message{
		Type:  MessageCommit,
		Frame: ev.Frame,
		Commit: &CommitState{
			Body:     ev.Body,
			Kind:     ev.Kind.String(),
			Position: ev.Pose.Position,
			Yaw:      ev.Pose.YawDegrees(),
			Outcome:  ev.Outcome.String(),
		},
	}
}

func errorMessage(frame uint64, err error) Message {
	return Message{Type: MessageError, Frame: frame, Error: err.Error()}
}

func textMessage(boxes []models.TextBox) Message {
	return Message{Type: MessageText, TextBoxes: boxes}
}

func noticeMessage(text string) Message {
	return Message{Type: MessageNotice, Notice: text}
}

// busObserver logs failed deliveries. Registering it also keeps the bus
// metrics reported in state messages up to date.
type busObserver struct {
	logger log.Log
}

func (o *busObserver) OnPublish(string, string, bus.Event) {}

func (o *busObserver) OnDelivered(topic, eventType string, handlers int, err error, _ int64) {
	if err != nil {
		o.logger.Warn("Event handler failed",
			log.String("topic", topic),
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Error(err))
	}
}
