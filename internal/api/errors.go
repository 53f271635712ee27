package api

import (
	"errors"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/ledger"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var errNotSignedIn = grpcstatus.Error(codes.Unauthenticated, "not signed in")

// writeError maps a ledger or backend failure on a write to a status.
func writeError(op string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, ledger.ErrReadOnly):
		return grpcstatus.Errorf(codes.FailedPrecondition, "%s: %v", op, err)
	case errors.Is(err, backend.ErrNotFound):
		return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, backend.ErrUnknownProcedure):
		return grpcstatus.Errorf(codes.Unimplemented, "%s: %v", op, err)
	default:
		return grpcstatus.Errorf(codes.Unavailable, "%s: %v", op, err)
	}
}
