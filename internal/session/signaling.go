package session

import (
	"context"
	"encoding/json"

	"github.com/cwrk-planet/chat-service/internal/realtime"
)

// relay пересылает offer/answer/ice_candidate во все соединения адресата.
// Содержимое не разбирается; если адресат офлайн: тишина.
func (s *Service) relay(eventType string) Handler {
	return HandlerFunc(func(ctx context.Context, c Client, payload json.RawMessage) error {
		if err := s.allow(ctx, c, s.signalRule, errTooManySignals); err != nil {
			return err
		}

		var req realtime.SignalRequest
		if err := decode(payload, &req); err != nil {
			return err
		}
		if req.RoomID <= 0 || req.TargetUserID <= 0 {
			return errSignalTargetMissing
		}

		s.router.DeliverToUser(int64(req.TargetUserID), realtime.Message{
			Type: eventType,
			Payload: realtime.SignalPayload{
				RoomID:     int64(req.RoomID),
				FromUserID: c.Identity.UserID,
				Payload:    req.Body(),
			},
		})
		return nil
	})
}

// micState: состояние микрофона, рассылается комнате без отправителя и нигде не хранится.
func (s *Service) micState(eventType string) Handler {
	return HandlerFunc(func(_ context.Context, c Client, payload json.RawMessage) error {
		var req realtime.RoomRequest
		if err := decode(payload, &req); err != nil {
			return err
		}
		if req.RoomID <= 0 {
			return errRoomRequired
		}

		s.router.Broadcast(int64(req.RoomID), realtime.Message{
			Type: eventType,
			Payload: realtime.MicPayload{
				RoomID: int64(req.RoomID),
				UserID: c.Identity.UserID,
			},
		}, c.Conn.ID())
		return nil
	})
}
