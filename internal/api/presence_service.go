package api

import (
	"context"
	"time"

	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/presence"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// PresenceService implements candle.v1.PresenceService.
type PresenceService struct {
	identity *identity.Provider
	tracker  *presence.Tracker
	bus      *bus.Bus
}

func NewPresenceService(id *identity.Provider, tracker *presence.Tracker, b *bus.Bus) *PresenceService {
	return &PresenceService{identity: id, tracker: tracker, bus: b}
}

// SendTyping never fails on transport errors; without an identity it is a no-op.
func (s *PresenceService) SendTyping(ctx context.Context, req *SendTypingRequest) (*SendTypingResponse, error) {
	if req.OtherUserID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "other_user_id is required")
	}
	self, _ := s.identity.Current()
	s.tracker.SendTypingStatus(ctx, self, req.OtherUserID, req.IsTyping)
	return &SendTypingResponse{}, nil
}

func (s *PresenceService) IsTyping(_ context.Context, req *IsTypingRequest) (*IsTypingResponse, error) {
	return &IsTypingResponse{UserID: req.UserID, IsTyping: s.tracker.IsUserTyping(req.UserID)}, nil
}

// WatchTyping streams the users already typing, then every change.
func (s *PresenceService) WatchTyping(_ *WatchTypingRequest, stream grpc.ServerStreamingServer[TypingEvent]) error {
	ch, unsub := s.bus.Subscribe(bus.KindTypingChanged, 256)
	defer unsub()

	now := time.Now()
	for _, userID := range s.tracker.Typing() {
		if err := stream.Send(typingEvent(userID, true, now)); err != nil {
			return err
		}
	}
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			change, ok := evt.Payload.(presence.TypingChanged)
			if !ok {
				continue
			}
			if err := stream.Send(typingEvent(change.UserID, change.IsTyping, evt.Timestamp)); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func typingEvent(userID string, typing bool, at time.Time) *TypingEvent {
	return &TypingEvent{
		EventID:    uuid.New().String(),
		UserID:     userID,
		IsTyping:   typing,
		OccurredAt: at,
	}
}
