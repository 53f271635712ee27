package api

import (
	"context"
	"time"

	"github.com/candlelife/candle/internal/auth"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/presence"
	"github.com/candlelife/candle/internal/wa"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Pairer links the WhatsApp presence transport.
type Pairer interface {
	StartQRAuth(ctx context.Context) (<-chan wa.AuthEvent, error)
	PhoneNumber() string
}

// SessionInfo describes what the daemon runs with.
type SessionInfo struct {
	Profile           string
	Backend           string
	PresenceTransport string
}

// SessionService implements candle.v1.SessionService.
type SessionService struct {
	info      SessionInfo
	startedAt time.Time
	identity  *identity.Provider
	bus       *bus.Bus
	verifier  *auth.Verifier
	tracker   *presence.Tracker
	pairer    Pairer
	logger    *zap.Logger
}

// NewSessionService creates the session service. verifier and pairer may be
// nil when token sign-in or the WhatsApp transport are not configured.
func NewSessionService(info SessionInfo, id *identity.Provider, b *bus.Bus, verifier *auth.Verifier, tracker *presence.Tracker, pairer Pairer, logger *zap.Logger) *SessionService {
	return &SessionService{
		info:      info,
		startedAt: time.Now(),
		identity:  id,
		bus:       b,
		verifier:  verifier,
		tracker:   tracker,
		pairer:    pairer,
		logger:    logger,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *GetStatusRequest) (*StatusResponse, error) {
	userID, ok := s.identity.Current()
	resp := &StatusResponse{
		Profile:           s.info.Profile,
		SignedIn:          ok,
		UserID:            userID,
		Link:              string(s.tracker.Link()),
		LinkSince:         s.tracker.LinkSince(),
		Backend:           s.info.Backend,
		PresenceTransport: s.info.PresenceTransport,
		UptimeMs:          time.Since(s.startedAt).Milliseconds(),
		EventsDropped:     s.bus.Dropped(),
	}
	if s.pairer != nil {
		resp.PhoneNumber = s.pairer.PhoneNumber()
	}
	return resp, nil
}

func (s *SessionService) SignIn(_ context.Context, req *SignInRequest) (*SignInResponse, error) {
	if s.verifier == nil {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "token sign-in is not configured (auth.jwt_secret)")
	}
	if req.AccessToken == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "access_token is required")
	}
	userID, err := s.verifier.Verify(req.AccessToken)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Unauthenticated, "%v", err)
	}
	s.identity.SignIn(userID)
	s.logger.Info("signed in", zap.String("user_id", userID))
	return &SignInResponse{UserID: userID}, nil
}

func (s *SessionService) SignOut(_ context.Context, _ *SignOutRequest) (*SignOutResponse, error) {
	userID, _ := s.identity.Current()
	s.identity.SignOut()
	if userID != "" {
		s.logger.Info("signed out", zap.String("user_id", userID))
	}
	return &SignOutResponse{UserID: userID}, nil
}

func (s *SessionService) Pair(_ *PairRequest, stream grpc.ServerStreamingServer[PairEvent]) error {
	if s.pairer == nil {
		return grpcstatus.Error(codes.FailedPrecondition, "presence transport is not whatsapp")
	}
	authCh, err := s.pairer.StartQRAuth(stream.Context())
	if err != nil {
		return grpcstatus.Errorf(codes.FailedPrecondition, "start pairing: %v", err)
	}
	for evt := range authCh {
		if err := stream.Send(&PairEvent{
			Type:    string(evt.Type),
			QRCode:  evt.QRCode,
			Message: evt.Message,
		}); err != nil {
			return err
		}
	}
	return nil
}
