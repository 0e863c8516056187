package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/core"
	"github.com/lanbix/live-interview/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, connID core.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		// Best-effort cleanup: mark the bound user disconnected in every
		// session this connection had joined.
		ctl.engine.Disconnect(context.WithoutCancel(ctx), connID)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.readLimit)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.handle(ctx, connID, c, data)
		}
	}
}

// handle dispatches one inbound event. A failing event is answered with an
// error to this connection only; it never tears the connection down or
// leaks into other sessions.
func (ctl *Controller) handle(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, domain.ErrValidation)
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, connID, c, data)
	case "leave":
		ctl.handleLeave(ctx, connID, c, data)
	case "media-status":
		ctl.handleMediaStatus(ctx, connID, c, data)
	case "media-ready":
		ctl.handleMediaReady(ctx, connID, c, data)
	case "signal-offer":
		ctl.handleSignalMessage(ctx, connID, c, data, "signal-offer")
	case "signal-answer":
		ctl.handleSignalMessage(ctx, connID, c, data, "signal-answer")
	case "signal-ice":
		ctl.handleSignalMessage(ctx, connID, c, data, "signal-ice")
	case "heartbeat":
		ctl.handleHeartbeat(c)
	case "ask-question":
		ctl.handleAskQuestion(ctx, connID, c, data)
	case "candidate-response":
		ctl.handleCandidateResponse(ctx, connID, c, data)
	case "request-ai-assistance":
		ctl.handleAssistRequest(ctx, connID, c, data)
	case "capture-status":
		ctl.handleCaptureStatus(ctx, connID, c, data)
	case "speech-log":
		ctl.handleSpeechLog(ctx, connID, c, data)
	case "ai-assistance-generated":
		ctl.handleAssistanceGenerated(ctx, connID, c, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, domain.ErrValidation)
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, err error) {
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{
		Type:    "error",
		Kind:    domain.ErrorKind(err),
		Message: err.Error(),
	})
}

// decode unmarshals and validates an inbound payload.
func (ctl *Controller) decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return domain.ErrValidation
	}
	if err := ctl.validate.Struct(out); err != nil {
		return domain.ErrValidation
	}
	return nil
}
