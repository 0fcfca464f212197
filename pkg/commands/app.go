package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/harrisonrobin/roadmap/pkg/auth"
	"github.com/harrisonrobin/roadmap/pkg/colors"
	"github.com/harrisonrobin/roadmap/pkg/config"
	"github.com/harrisonrobin/roadmap/pkg/drafts"
	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/remote"
	"github.com/harrisonrobin/roadmap/pkg/sheets"
	"github.com/harrisonrobin/roadmap/pkg/snapshot"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
)

// app holds everything a command needs, built once from the config.
type app struct {
	cfg     *config.Config
	log     hclog.Logger
	engine  *syncer.Engine
	palette *colors.Cache
	cache   *snapshot.Cache
}

type appOptions struct {
	// offline serves tasks from the snapshot cache only.
	offline bool
	// logOutput defaults to stderr.
	logOutput io.Writer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(ro.configFile)
	if err != nil {
		return nil, err
	}
	if ro.logLevel != "" {
		cfg.LogLevel = ro.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "roadmap",
		Level:  level,
		Output: out,
	})
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg, opts.logOutput)}

	if a.palette, err = colors.NewCache(cfg.Dir); err != nil {
		a.log.Warn("could not load category colours", "error", err)
		a.palette, _ = colors.NewCache("")
	}

	if a.cache, err = snapshot.Open(cfg.CachePath); err != nil {
		a.log.Warn("snapshot cache unavailable", "path", cfg.CachePath, "error", err)
		a.cache = nil
	}

	var r syncer.Remote
	if opts.offline {
		if a.cache == nil {
			return nil, fmt.Errorf("--offline needs the snapshot cache at %s", cfg.CachePath)
		}
		r = offlineRemote{cache: a.cache}
	} else if r, err = buildRemote(ctx, cfg, a.log); err != nil {
		a.close()
		return nil, err
	}

	engineOpts := syncer.Options{
		PollInterval: cfg.PollInterval,
		Logger:       a.log.Named("sync"),
		Drafts:       drafts.Open(cfg.DraftsPath, a.log.Named("drafts")),
	}
	if a.cache != nil && !opts.offline {
		engineOpts.Cache = a.cache
	}
	a.engine = syncer.New(r, engineOpts)
	return a, nil
}

func (a *app) close() {
	if err := a.palette.Save(); err != nil {
		a.log.Warn("could not save category colours", "error", err)
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

// load refreshes once, falling back to the snapshot cache. It fails only when
// no tasks could be loaded at all.
func (a *app) load(ctx context.Context) (syncer.Snapshot, error) {
	err := a.engine.Refresh(ctx)
	snap := a.engine.Snapshot()
	if err != nil {
		if len(snap.Tasks) == 0 {
			return snap, err
		}
		a.log.Warn("showing cached tasks", "fetched", snap.LastRefresh, "error", err)
	}
	return snap, nil
}

func buildRemote(ctx context.Context, cfg *config.Config, log hclog.Logger) (syncer.Remote, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		httpClient, err := authClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		srv, err := sheets.NewService(ctx, httpClient)
		if err != nil {
			return nil, fmt.Errorf("unable to create Sheets service: %w", err)
		}
		client, err := sheets.NewClient(srv, cfg.SheetID, cfg.SheetRange, cfg.Window.Location, log.Named("sheets"))
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		if _, err := remote.ParseBaseURL(cfg.BaseURL); err != nil {
			return nil, err
		}
		var httpClient *http.Client
		if cfg.AuthEnabled {
			var err error
			if httpClient, err = authClient(ctx, cfg, log); err != nil {
				return nil, err
			}
		} else {
			httpClient = &http.Client{}
		}
		if cfg.Timeout > 0 {
			httpClient.Timeout = cfg.Timeout
		} else {
			httpClient.Timeout = remote.DefaultTimeout
		}
		client, err := remote.NewClient(cfg.BaseURL, remote.Options{
			HTTPClient: httpClient,
			SaveAction: cfg.SaveAction,
			Location:   cfg.Window.Location,
			Logger:     log.Named("remote"),
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func authFlow(cfg *config.Config, log hclog.Logger) *auth.Flow {
	return &auth.Flow{
		Dir:    cfg.Dir,
		Scopes: cfg.AuthScopes,
		Logger: log.Named("auth"),
		Out:    os.Stdout,
	}
}

func authClient(ctx context.Context, cfg *config.Config, log hclog.Logger) (*http.Client, error) {
	client, err := authFlow(cfg, log).Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed (run 'roadmap auth'): %w", err)
	}
	return client, nil
}

// offlineRemote serves the snapshot cache and refuses to save.
type offlineRemote struct {
	cache *snapshot.Cache
}

func (o offlineRemote) List(ctx context.Context) ([]model.Task, error) {
	tasks, _, err := o.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		return nil, &remote.ConfigurationError{Setting: "cache.path", Reason: "snapshot cache is empty"}
	}
	return tasks, nil
}

func (o offlineRemote) SaveTicks(ctx context.Context, rows []model.TickRow) error {
	return &remote.ConfigurationError{Setting: "offline", Reason: "saving is disabled while offline"}
}

func logFile(cfg *config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(cfg.Dir, "roadmap.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
