package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/candlelife/candle/internal/client"
	"github.com/candlelife/candle/internal/profile"
	grpcstatus "google.golang.org/grpc/status"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// token reads the config only and works without a running daemon.
	if args[0] == "token" {
		cmdToken(args[1:], *jsonFlag)
		return
	}

	socketPath := profile.SocketPath(profileName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	// Streaming commands run until interrupted.
	streamCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := printer{json: *jsonFlag}
	switch args[0] {
	case "status":
		cmdStatus(ctx, c, out)
	case "signin":
		cmdSignIn(ctx, c, args[1:], out)
	case "signout":
		cmdSignOut(ctx, c, out)
	case "debts":
		cmdDebts(ctx, c, out)
	case "record":
		cmdRecord(ctx, c, args[1:], out)
	case "paid":
		need(args, 2, "candlectl paid <transaction-id>")
		cmdPaid(ctx, c, args[1], out)
	case "typing":
		need(args, 3, "candlectl typing <user-id> on|off")
		cmdTyping(ctx, c, args[1], args[2])
	case "is-typing":
		need(args, 2, "candlectl is-typing <user-id>")
		cmdIsTyping(ctx, c, args[1], out)
	case "watch":
		cmdWatch(streamCtx, c, out)
	case "pair":
		cmdPair(streamCtx, c, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: candlectl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                     Show daemon and link status")
	fmt.Fprintln(os.Stderr, "  signin [token]             Sign in with an access token ($CANDLE_TOKEN)")
	fmt.Fprintln(os.Stderr, "  signout                    Sign out")
	fmt.Fprintln(os.Stderr, "  debts                      Show who owes you")
	fmt.Fprintln(os.Stderr, "  record [flags]             Record a transaction (see record -h)")
	fmt.Fprintln(os.Stderr, "  paid <id>                  Mark a transaction paid")
	fmt.Fprintln(os.Stderr, "  typing <user> on|off       Tell a user you are typing")
	fmt.Fprintln(os.Stderr, "  is-typing <user>           Check whether a user is typing to you")
	fmt.Fprintln(os.Stderr, "  watch                      Stream typing changes")
	fmt.Fprintln(os.Stderr, "  pair                       Link WhatsApp as the presence transport")
	fmt.Fprintln(os.Stderr, "  token <user> [--ttl 24h]   Mint a development access token")
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		os.Exit(1)
	}
}

// fail prints err, using the status message for RPC errors, and exits.
func fail(err error) {
	if s, ok := grpcstatus.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", s.Message(), s.Code())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

type printer struct {
	json bool
}

// emit writes v as JSON when --json is set and reports whether it did.
func (p printer) emit(v any) bool {
	if !p.json {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
	return true
}
