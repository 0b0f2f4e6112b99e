package server

import (
	"context"
	"fmt"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
)

// handleText serves text box commands on the client's read goroutine. Text
// boxes take no part in collision, so the scene loop is not involved.
// Listing replies to the caller; changes are broadcast to every client.
func (s *Server) handleText(session *ClientSession, cmd Command) {
	if s.texts == nil {
		s.sendTo(session, errorMessage(0, ErrTextBoxesDisabled))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	var err error
	switch cmd.Action {
	case ActionTextList:
	case ActionTextCreate:
		box := models.NewTextBox(cmd.X, cmd.Z, cmd.Yaw)
		if cmd.Patch != nil {
			box = cmd.Patch.Apply(box)
		}
		_, err = s.texts.CreateTextBox(ctx, box)
	case ActionTextUpdate:
		if cmd.Patch == nil {
			err = fmt.Errorf("%w: text_update without patch", ErrInvalidMessage)
			break
		}
		_, err = s.texts.UpdateTextBox(ctx, cmd.TextID, *cmd.Patch)
	case ActionTextDelete:
		err = s.texts.DeleteTextBox(ctx, cmd.TextID)
	}
	if err != nil {
		s.logger.Debug("Text box command failed",
			log.String("client_id", session.ID),
			log.String("action", cmd.Action),
			log.Error(err))
		s.sendTo(session, errorMessage(0, err))
		return
	}

	boxes, err := s.texts.TextBoxes(ctx)
	if err != nil {
		s.sendTo(session, errorMessage(0, err))
		return
	}
	if cmd.Action == ActionTextList {
		s.sendTo(session, textMessage(boxes))
		return
	}
	s.broadcast(textMessage(boxes))
}
