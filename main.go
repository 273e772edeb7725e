// Command backend is the main entrypoint for the livestream chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Builds the AI answering stack: knowledge retriever, credential pool and
//     the configured provider (Gemini or Ollama).
//   - Starts the chat runners for YouTube and/or Twitch plus OAuth token
//     refreshers.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics
//     and the OAuth endpoints.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joho/godotenv"

	"github.com/acnlive/livebot/backend/ai"
	"github.com/acnlive/livebot/backend/chat"
	"github.com/acnlive/livebot/backend/commands"
	"github.com/acnlive/livebot/backend/config"
	"github.com/acnlive/livebot/backend/knowledge"
	"github.com/acnlive/livebot/backend/moderation"
	"github.com/acnlive/livebot/backend/oauth"
	"github.com/acnlive/livebot/backend/server"
	"github.com/acnlive/livebot/backend/telemetry"
	"github.com/acnlive/livebot/backend/tokenstore"
	"github.com/acnlive/livebot/backend/twitchapi"
	"github.com/acnlive/livebot/backend/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("livebot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Token store (file-backed, optionally encrypted)
	tokens, err := tokenstore.New(os.Getenv("TOKEN_DIR"))
	if err != nil {
		slog.Error("token store init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Knowledge base + retriever
	know := knowledge.NewStore(cfg.KnowledgePath)
	telemetry.SetKnowledgeSize(know.Len())
	retriever := knowledge.NewRetriever(know)

	// AI answering stack. Missing provider credentials degrade to a bot
	// without !ask instead of refusing to start.
	var responder ai.Responder
	var pool *ai.CredentialPool
	if err := cfg.ValidateAIReady(); err != nil {
		slog.Warn("ai disabled", slog.Any("err", err))
	} else {
		switch cfg.AIProvider {
		case config.ProviderGemini:
			gen, err := ai.NewGeminiGenerator(ctx, cfg.GeminiAPIKeys, cfg.GeminiModel)
			if err != nil {
				slog.Error("gemini init failed", slog.Any("err", err))
				os.Exit(1)
			}
			pool = ai.NewCredentialPool(cfg.GeminiAPIKeys)
			telemetry.SetPoolUsable(pool.Usable())
			responder = ai.NewGeminiOrchestrator(retriever, gen, pool, cfg.BotPersona)
			slog.Info("ai ready", slog.String("provider", "gemini"), slog.String("model", cfg.GeminiModel), slog.Int("credentials", pool.Size()))
		case config.ProviderOllama:
			gen := ai.NewOllamaGenerator(cfg.OllamaHost, cfg.OllamaModel)
			responder = ai.NewOllamaOrchestrator(retriever, gen, cfg.BotPersona)
			slog.Info("ai ready", slog.String("provider", "ollama"), slog.String("model", cfg.OllamaModel))
		}
	}

	// Shared message pipeline
	mod := moderation.NewEngine(cfg.EmojiLimit, cfg.WordLimit, cfg.TimeoutNormal, cfg.TimeoutMod)
	cmds := commands.NewHandler(cfg, responder)
	proc := chat.NewProcessor(mod, cmds)

	// YouTube live chat runner
	var yts *youtubeapi.Service
	if cfg.YTClientID != "" && cfg.YTClientSecret != "" {
		yts = youtubeapi.New(cfg, tokens)
		if err := cfg.ValidateYouTubeReady(); err != nil {
			slog.Info("youtube runner disabled", slog.Any("err", err))
		} else {
			go func() {
				if err := chat.RunYouTube(ctx, cfg, yts, proc); err != nil && ctx.Err() == nil {
					slog.Error("youtube runner exited", slog.Any("err", err))
				}
			}()
		}
	}

	// Twitch chat runner (optional second frontend)
	if err := cfg.ValidateTwitchReady(); err != nil {
		slog.Info("twitch runner disabled", slog.Any("err", err))
	} else {
		go func() {
			if err := chat.RunTwitch(ctx, cfg, proc); err != nil && ctx.Err() == nil {
				slog.Error("twitch runner exited", slog.Any("err", err))
			}
		}()
	}

	// Helix client for /status live-stream lookups
	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
	}

	// Centralized OAuth token refreshers
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		oauth.StartRefresher(ctx, tokens, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), "", nil
		})
	}
	if cfg.YTClientID != "" {
		oauth.StartRefresher(ctx, tokens, "youtube", 10*time.Minute, 20*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			oc := &oauth2.Config{ClientID: cfg.YTClientID, ClientSecret: cfg.YTClientSecret, Endpoint: google.Endpoint, RedirectURL: cfg.YTRedirectURI}
			newTok, err := oc.TokenSource(rctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, "", nil
		})
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/oauth)
	deps := server.Deps{
		Cfg:       cfg,
		Knowledge: know,
		Pool:      pool,
		YouTube:   yts,
		Twitch:    helix,
		Tokens:    tokens,
		StartedAt: time.Now(),
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
