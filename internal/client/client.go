package client

import (
	"fmt"

	"github.com/candlelife/candle/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn     *grpc.ClientConn
	Session  *api.SessionClient
	Debts    *api.DebtClient
	Presence *api.PresenceClient
	Health   healthpb.HealthClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
// Every call is encoded with the daemon's JSON codec.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:     conn,
		Session:  api.NewSessionClient(conn),
		Debts:    api.NewDebtClient(conn),
		Presence: api.NewPresenceClient(conn),
		Health:   healthpb.NewHealthClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
