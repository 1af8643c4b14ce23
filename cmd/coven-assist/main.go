// ABOUTME: Entry point for the coven-assist conversational assistant service
// ABOUTME: Wires config, store, engine, registry, and the HTTP gateway together

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-assist/internal/config"
	"github.com/2389/coven-assist/internal/content"
	"github.com/2389/coven-assist/internal/engine"
	"github.com/2389/coven-assist/internal/feedback"
	"github.com/2389/coven-assist/internal/gateway"
	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/model"
	"github.com/2389/coven-assist/internal/registry"
	"github.com/2389/coven-assist/internal/session"
	"github.com/2389/coven-assist/internal/store"
	"github.com/2389/coven-assist/internal/suggest"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                            _     _
  ___ _____   _____ _ __     __ _ ___ ___(_)___ | |_
 / __/ _ \ \ / / _ \ '_ \ _ / _' / __/ __| / __|| __|
| (_| (_) \ V /  __/ | | |_| (_| \__ \__ \ \__ \| |_
 \___\___/ \_/ \___|_| |_|  \__,_|___/___/_|___/ \__|
`

// getConfigPath returns the path to the assist config file.
// Priority: COVEN_ASSIST_CONFIG env var > XDG_CONFIG_HOME/coven/assist.yaml > ~/.config/coven/assist.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_ASSIST_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "assist.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "assist.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-assist <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the assistant service")
		fmt.Println("  health  Check service health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting coven-assist",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"models", len(cfg.Models),
	)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	catalog, defaultKey, err := buildCatalog(cfg.Models, logger)
	if err != nil {
		return fmt.Errorf("building model catalog: %w", err)
	}

	eng := engine.NewOpenAIEngine(cfg.Engine.APIKey, cfg.Engine.BaseURL, cfg.Engine.RequestTimeout, logger)
	broadcaster := hub.New(logger)
	defer broadcaster.Close()

	pages := content.NewPageCache()

	var checker registry.PremiumChecker
	if cfg.Premium.StatusURL != "" {
		checker = registry.NewHTTPPremiumChecker(cfg.Premium.StatusURL, nil, logger)
	}

	var sink session.FeedbackSink
	if cfg.Feedback.URL != "" {
		sink = feedback.NewHTTPSink(cfg.Feedback.URL, nil, logger)
	}

	reg := registry.New(registry.Options{
		Store:           db,
		Engine:          eng,
		Catalog:         catalog,
		Hub:             broadcaster,
		Premium:         checker,
		Feedback:        sink,
		PageText:        pages,
		Questions:       suggest.NewEngineSource(eng, defaultKey),
		ActionMenu:      buildActionMenu(cfg.Actions),
		DefaultModelKey: defaultKey,
		RequestTimeout:  cfg.Engine.RequestTimeout,
		PremiumRefresh:  cfg.Premium.RefreshInterval,
		Logger:          logger,
	})
	defer reg.Close()

	gw := gateway.New(reg, broadcaster, pages, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Start(ctx, cfg.Server.HTTPAddr)
	})
	g.Go(func() error {
		<-ctx.Done()
		reg.Close()
		return nil
	})
	return g.Wait()
}

// buildCatalog converts configured model entries into catalog models. The
// first configured model becomes the default for new conversations.
func buildCatalog(models []config.ModelConfig, logger *slog.Logger) (*model.Catalog, string, error) {
	if len(models) == 0 {
		return nil, "", fmt.Errorf("at least one model must be configured")
	}

	out := make([]*model.Model, 0, len(models))
	for _, mc := range models {
		if mc.Endpoint != "" {
			out = append(out, &model.Model{
				Key: mc.Key,
				Custom: &model.CustomOptions{
					RequestName: mc.RequestName,
					Endpoint:    mc.Endpoint,
					APIKey:      mc.APIKey,
				},
			})
			continue
		}

		tier, err := parseTier(mc.Tier)
		if err != nil {
			return nil, "", fmt.Errorf("model %q: %w", mc.Key, err)
		}
		out = append(out, &model.Model{
			Key: mc.Key,
			Hosted: &model.HostedOptions{
				Name:             mc.Name,
				Maker:            mc.Maker,
				Tier:             tier,
				MaxContentLength: mc.MaxLength,
			},
		})
	}

	return model.NewCatalog(out, logger), models[0].Key, nil
}

func parseTier(s string) (model.AccessTier, error) {
	switch s {
	case "basic", "":
		return model.TierBasic, nil
	case "basic_and_premium":
		return model.TierBasicAndPremium, nil
	case "premium":
		return model.TierPremium, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

func buildActionMenu(actions []config.ActionConfig) []registry.ActionGroup {
	out := make([]registry.ActionGroup, 0, len(actions))
	for _, ac := range actions {
		group := registry.ActionGroup{Category: ac.Category}
		for _, ec := range ac.Entries {
			group.Entries = append(group.Entries, registry.ActionEntry{
				Label:      ec.Label,
				Subheading: ec.Subheading,
				ActionTag:  ec.ActionTag,
			})
		}
		out = append(out, group)
	}
	return out
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
