package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/profullstack/ugig.net-sub000/internal/client"
	"github.com/profullstack/ugig.net-sub000/internal/log"
)

const typingTTL = 4 * time.Second

var (
	flagServer   string
	flagUser     string
	flagPassword string
	flagRegister bool
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:          "chat",
		Short:        "Terminal client for ugig.net conversations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "username")
	root.PersistentFlags().StringVar(&flagPassword, "password", "", "password")
	root.PersistentFlags().BoolVar(&flagRegister, "register", false, "register a new account instead of logging in")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level")

	root.AddCommand(conversationsCmd(), openCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func login(ctx context.Context) (*client.REST, error) {
	if flagUser == "" || flagPassword == "" {
		return nil, fmt.Errorf("--user and --password are required")
	}
	rest := client.NewREST(flagServer)
	if flagRegister {
		if err := rest.Register(ctx, flagUser, flagPassword); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		return rest, nil
	}
	if err := rest.Login(ctx, flagUser, flagPassword); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return rest, nil
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List your conversations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rest, err := login(cmd.Context())
			if err != nil {
				return err
			}
			conversations, err := rest.Conversations(cmd.Context())
			if err != nil {
				return err
			}
			for _, conv := range conversations {
				gig := ""
				if conv.GigID != nil {
					gig = fmt.Sprintf(" (gig %d)", *conv.GigID)
				}
				fmt.Printf("#%d participants=%v%s last activity %s\n",
					conv.ID, conv.ParticipantIDs, gig, conv.LastMessageAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func openCmd() *cobra.Command {
	var selfID int64
	cmd := &cobra.Command{
		Use:   "open <conversation-id>",
		Short: "Open a conversation and chat live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conversationID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			return runOpen(cmd.Context(), conversationID, selfID)
		},
	}
	cmd.Flags().Int64Var(&selfID, "self-id", 0, "your user id (for seen/sent indicators)")
	return cmd
}

func runOpen(parent context.Context, conversationID, selfID int64) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(flagLogLevel)

	rest, err := login(ctx)
	if err != nil {
		return err
	}

	otherID := int64(0)
	if conversations, err := rest.Conversations(ctx); err == nil {
		for _, conv := range conversations {
			if conv.ID == conversationID {
				otherID = conv.Other(selfID)
			}
		}
	}

	typing := client.NewTypingTracker(rest, conversationID, selfID, typingTTL, logger)
	receipts := client.NewReceipts(rest, selfID, logger)
	view := newView(selfID, otherID)

	var sync *client.Synchronizer
	sync = client.NewSynchronizer(client.Options{
		Fetcher:        rest,
		Dialer:         client.NewWSDialer(flagServer, rest.Token()),
		ConversationID: conversationID,
		SelfID:         selfID,
		Logger:         logger,
		OnTyping:       typing.Observe,
		OnChange: func() {
			entries := sync.Snapshot()
			view.render(entries, sync.State(), typing.OtherTyping())
			go receipts.Observe(ctx, entries)
		},
	})

	if err := sync.Open(ctx); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}
	defer sync.Close()

	composer := client.NewComposer(rest, sync, conversationID, selfID, flagUser)

	fmt.Printf("Connected to conversation #%d as %s. Type to send, /retry to reconnect, Ctrl+C to exit.\n",
		conversationID, flagUser)

	return inputLoop(ctx, composer, typing, sync)
}
