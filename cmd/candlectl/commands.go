package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/candlelife/candle/internal/api"
	"github.com/candlelife/candle/internal/auth"
	"github.com/candlelife/candle/internal/client"
	"github.com/candlelife/candle/internal/config"
	"github.com/candlelife/candle/internal/profile"
	qrcode "github.com/skip2/go-qrcode"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func cmdStatus(ctx context.Context, c *client.Client, out printer) {
	resp, err := c.Session.GetStatus(ctx, &api.GetStatusRequest{})
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Profile:   %s\n", resp.Profile)
	if resp.SignedIn {
		fmt.Printf("User:      %s\n", resp.UserID)
	} else {
		fmt.Println("User:      (signed out)")
	}
	fmt.Printf("Presence:  %s since %s\n", resp.Link, resp.LinkSince.Local().Format(time.Kitchen))
	fmt.Printf("Backend:   %s\n", resp.Backend)
	fmt.Printf("Transport: %s\n", resp.PresenceTransport)
	if resp.PhoneNumber != "" {
		fmt.Printf("WhatsApp:  +%s\n", resp.PhoneNumber)
	}
	fmt.Printf("Uptime:    %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	if resp.EventsDropped > 0 {
		fmt.Printf("Dropped:   %d events\n", resp.EventsDropped)
	}
}

func cmdSignIn(ctx context.Context, c *client.Client, args []string, out printer) {
	token := os.Getenv("CANDLE_TOKEN")
	if len(args) > 0 {
		token = args[0]
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "usage: candlectl signin <token> (or set CANDLE_TOKEN)")
		os.Exit(1)
	}
	resp, err := c.Session.SignIn(ctx, &api.SignInRequest{AccessToken: token})
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Signed in as %s\n", resp.UserID)
}

func cmdSignOut(ctx context.Context, c *client.Client, out printer) {
	resp, err := c.Session.SignOut(ctx, &api.SignOutRequest{})
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	if resp.UserID == "" {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("Signed out %s\n", resp.UserID)
}

func cmdDebts(ctx context.Context, c *client.Client, out printer) {
	resp, err := c.Debts.ComputeDebts(ctx, &api.ComputeDebtsRequest{})
	if err != nil {
		// Failure is its own state, never an empty list.
		if grpcstatus.Code(err) == codes.Unauthenticated {
			fail(err)
		}
		fmt.Fprintln(os.Stderr, "Could not load debts.")
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	if len(resp.Debts) == 0 {
		fmt.Println("Nobody owes you anything.")
		return
	}
	fmt.Printf("%-36s %12s %8s\n", "COUNTERPARTY", "OWED", "PENDING")
	for _, d := range resp.Debts {
		fmt.Printf("%-36s %12s %8d\n", d.CounterpartyID, d.TotalOwed, d.OverdueCount)
	}
	fmt.Printf("%-36s %12s\n", "TOTAL", resp.Total)
	fmt.Printf("\nSince %s", resp.Since.Local().Format(time.DateOnly))
	if resp.FromCache {
		fmt.Printf(" (as of %s)", resp.AsOf.Local().Format(time.TimeOnly))
	}
	fmt.Println()
}

func cmdRecord(ctx context.Context, c *client.Client, args []string, out printer) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	typ := fs.String("type", "income", "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	counterparty := fs.String("counterparty", "", "user id of the other party")
	date := fs.String("date", "", "date as YYYY-MM-DD (default now)")
	desc := fs.String("desc", "", "description")
	_ = fs.Parse(args)

	if *amount == "" {
		fmt.Fprintln(os.Stderr, "usage: candlectl record --amount <n> [--type income|expense] [--counterparty <id>] [--date YYYY-MM-DD] [--desc text]")
		os.Exit(1)
	}
	req := &api.RecordTransactionRequest{
		CounterpartyID: *counterparty,
		Type:           *typ,
		Amount:         *amount,
		Description:    *desc,
	}
	if *date != "" {
		d, err := time.ParseInLocation(time.DateOnly, *date, time.Local)
		if err != nil {
			fail(fmt.Errorf("invalid --date: %w", err))
		}
		req.Date = d
	}

	resp, err := c.Debts.RecordTransaction(ctx, req)
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Recorded %s\n", resp.ID)
}

func cmdPaid(ctx context.Context, c *client.Client, id string, out printer) {
	resp, err := c.Debts.MarkPaid(ctx, &api.MarkPaidRequest{TransactionID: id})
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Marked %s paid\n", id)
}

func cmdTyping(ctx context.Context, c *client.Client, userID, state string) {
	var typing bool
	switch state {
	case "on":
		typing = true
	case "off":
	default:
		fmt.Fprintln(os.Stderr, "usage: candlectl typing <user-id> on|off")
		os.Exit(1)
	}
	if _, err := c.Presence.SendTyping(ctx, &api.SendTypingRequest{OtherUserID: userID, IsTyping: typing}); err != nil {
		fail(err)
	}
}

func cmdIsTyping(ctx context.Context, c *client.Client, userID string, out printer) {
	resp, err := c.Presence.IsTyping(ctx, &api.IsTypingRequest{UserID: userID})
	if err != nil {
		fail(err)
	}
	if out.emit(resp) {
		return
	}
	if resp.IsTyping {
		fmt.Printf("%s is typing...\n", userID)
	} else {
		fmt.Printf("%s is not typing\n", userID)
	}
}

func cmdWatch(ctx context.Context, c *client.Client, out printer) {
	stream, err := c.Presence.WatchTyping(ctx, &api.WatchTypingRequest{})
	if err != nil {
		fail(err)
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
			return
		}
		if err != nil {
			fail(err)
		}
		if out.emit(evt) {
			continue
		}
		verb := "stopped typing"
		if evt.IsTyping {
			verb = "is typing..."
		}
		fmt.Printf("%s  %s %s\n", evt.OccurredAt.Local().Format(time.TimeOnly), evt.UserID, verb)
	}
}

func cmdPair(ctx context.Context, c *client.Client, out printer) {
	stream, err := c.Session.Pair(ctx, &api.PairRequest{})
	if err != nil {
		fail(err)
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fail(err)
		}
		if out.emit(evt) {
			continue
		}
		switch evt.Type {
		case "qr_code":
			fmt.Printf("\nScan this QR code with WhatsApp (Linked devices):\n\n%s\n", renderQR(evt.QRCode))
		case "authenticated":
			fmt.Println("Paired.")
		default:
			fmt.Printf("%s: %s\n", evt.Type, evt.Message)
		}
	}
}

func cmdToken(args []string, jsonOut bool) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, "usage: candlectl token <user-id> [--ttl 24h]")
		os.Exit(1)
	}
	userID := args[0]
	_ = fs.Parse(args[1:])

	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		fail(err)
	}
	v, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		fail(fmt.Errorf("%w (start candled once to generate one)", err))
	}
	token, err := v.Issue(userID, *ttl)
	if err != nil {
		fail(err)
	}
	if (printer{json: jsonOut}).emit(map[string]string{"user_id": userID, "access_token": token}) {
		return
	}
	fmt.Println(token)
}

// renderQR draws content as a QR code using half-block characters, two
// modules per text row.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(qr.ToSmallString(false), "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
