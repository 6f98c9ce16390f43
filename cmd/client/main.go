// Command client is a terminal demo of the client core: it bootstraps or
// signs in a session against the backend, then tails a room's chat with
// optimistic sends.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dvir/roombill-client/internal/cache"
	"github.com/dvir/roombill-client/internal/chat"
	"github.com/dvir/roombill-client/internal/config"
	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/notify"
	"github.com/dvir/roombill-client/internal/remote/httpapi"
	"github.com/dvir/roombill-client/internal/session"
	"github.com/dvir/roombill-client/internal/store"
	"github.com/dvir/roombill-client/internal/store/gormkv"
	"github.com/dvir/roombill-client/internal/store/memory"
	"github.com/dvir/roombill-client/internal/store/securebox"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	name := flag.String("name", "", "register a new account with this name")
	roomID := flag.String("room", "demo-room", "room to chat in")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		logger.Error("failed to open blob store", slog.Any("error", err))
		os.Exit(1)
	}
	secure, err := securebox.Open(cfg.SecureStorePath, cfg.SecureStorePassphrase)
	if err != nil {
		logger.Error("failed to open secure store", slog.Any("error", err))
		os.Exit(1)
	}

	api := httpapi.NewClient(cfg.APIBaseURL)
	notifier := notify.NewCronScheduler(func() {
		fmt.Println("reminder: review today's billing activity")
	}, logger)
	defer notifier.Stop()

	mgr := session.NewManager(api, secure, blobs, notifier, cfg, logger)
	mgr.Subscribe(func(st session.State) {
		logger.Info("session state",
			slog.String("phase", st.Phase.String()),
			slog.Bool("degraded", st.Degraded),
			slog.String("view", string(st.View)))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr.Bootstrap(ctx)

	if mgr.State().Phase != session.PhaseSignedIn {
		var res session.Result
		switch {
		case *name != "":
			res = mgr.SignUp(ctx, *name, *email, *password)
		case *email != "":
			res = mgr.SignIn(ctx, *email, *password)
		default:
			fmt.Fprintln(os.Stderr, "not signed in: pass -email/-password (or -name to register)")
			os.Exit(1)
		}
		if !res.Success {
			fmt.Fprintln(os.Stderr, "sign-in failed:", res.Error)
			os.Exit(1)
		}
	}

	st := mgr.State()
	fmt.Printf("signed in as %s (%s)\n", st.User.Name, st.View)

	screens := cache.New(blobs, logger, cache.WithMaxAge(cfg.CacheMaxAge))
	screens.Write(ctx, "profile", st.User)

	self := domain.MessageSender{ID: st.User.ID, Name: st.User.Name, AvatarURL: st.User.AvatarURL}
	rec := chat.NewReconciler(api, *roomID, self, st.User.HasRole("admin"), cfg, logger,
		chat.WithSendFailureHandler(func(text string, err error) {
			fmt.Printf("!! send failed: %q (%v)\n", text, err)
		}))
	rec.Subscribe(func(msgs []domain.ChatMessage) {
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			fmt.Printf("[%s] %s: %s\n", last.CreatedAt.Format("15:04:05"), last.Sender.Name, last.Text)
		}
	})
	if err := rec.Start(ctx); err != nil {
		logger.Warn("chat unavailable", slog.Any("error", err))
	}
	defer rec.Stop()

	tracker := chat.NewReadTracker(blobs, cfg.ReadTrackInterval, logger)
	go tracker.RunWhileFocused(ctx, *roomID)

	wsURL := strings.Replace(cfg.APIBaseURL, "http", "ws", 1) + "/api/v1/rooms/" + *roomID + "/live"
	go chat.NewLiveFeed(wsURL, mgr.State().Token, rec, logger).Run(ctx)

	fmt.Println("type a message and press enter (ctrl-c to quit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		mgr.ResetActivity(ctx)
		if err := rec.Send(ctx, text); err != nil {
			fmt.Fprintln(os.Stderr, "send rejected:", err)
		}
	}

	<-ctx.Done()
	mgr.EnterBackground(context.Background())
}

// openBlobStore uses the gorm-backed device store when a database is
// configured and falls back to the in-memory store otherwise.
func openBlobStore(cfg *config.Config) (store.GeneralStore, error) {
	if cfg.DatabaseURL == "" {
		return memory.New().Blobs(), nil
	}
	db, err := gormkv.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return gormkv.New(db), nil
}
