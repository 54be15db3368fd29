package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amterp/sitegate/internal/api"
	"github.com/amterp/sitegate/internal/config"
	"github.com/amterp/sitegate/internal/content"
	"github.com/amterp/sitegate/internal/credential"
	"github.com/amterp/sitegate/internal/discovery"
	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/intercept"
	"github.com/amterp/sitegate/internal/locator"
	"github.com/amterp/sitegate/internal/model"
	"github.com/amterp/sitegate/internal/prompt"
	"github.com/amterp/sitegate/internal/proxy"
	"github.com/amterp/sitegate/internal/rewrite"
	"github.com/amterp/sitegate/internal/shim"
	"github.com/amterp/sitegate/internal/store"
)

// App holds all wired dependencies for CLI commands.
type App struct {
	ConfigStore store.ConfigStore
	Config      *model.SiteConfig
	Prompter    prompt.Prompter
	Store       content.Store
	Rules       *intercept.Rules
	Normalizer  *locator.Normalizer
	Rewriter    *rewrite.Rewriter

	token string
}

// NewApp loads the config and wires up the content store for its source.
// If interactive is false, uses NoopPrompter that fails on prompts.
func NewApp(configPath string, interactive bool) (*App, error) {
	path, err := discovery.ResolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	configStore := store.NewConfigStore(path)

	cfg, err := configStore.Load()
	if err != nil {
		if sgerr.IsNotFound(err) {
			return nil, fmt.Errorf("no config at %s: run 'sitegate init' first", configStore.Path())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configStore.Path(), err)
	}
	cfg.LocalDir = config.ResolveLocal(configStore.Path(), cfg.LocalDir)
	cfg.TokenFile = config.ResolveLocal(configStore.Path(), cfg.TokenFile)

	var prompter prompt.Prompter
	if interactive {
		prompter = prompt.NewHuhPrompter()
	} else {
		prompter = &prompt.NoopPrompter{}
	}

	app := &App{
		ConfigStore: configStore,
		Config:      cfg,
		Prompter:    prompter,
		Rules:       cfg.Rules(),
		Normalizer:  locator.NewNormalizer(cfg.RootPrefix),
	}
	app.Rewriter = rewrite.New(app.Normalizer)

	if err := app.openStore(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) openStore() error {
	switch a.Config.Source {
	case model.SourceDir:
		a.Store = content.NewDir(a.Config.LocalDir)

	case model.SourceGit:
		repo, err := content.OpenGitRepo(a.Config.LocalDir, a.Config.Branch)
		if err != nil {
			return err
		}
		a.Store = repo

	default:
		token, err := credential.GetToken(a.Config.TokenFile, a.Prompter)
		if err != nil {
			return err
		}
		a.token = token
		a.Store = content.NewClient(a.Config.APIBase, content.Coordinates{
			Owner:  a.Config.Owner,
			Repo:   a.Config.Repo,
			Branch: a.Config.Branch,
		}, token)
	}
	return nil
}

// CheckAccess confirms the content source can be read.
func (a *App) CheckAccess(ctx context.Context) error {
	switch s := a.Store.(type) {
	case *content.Client:
		return s.CheckAccess(ctx)
	case *content.GitRepo:
		_, err := s.Revision()
		return err
	case *content.Dir:
		info, err := os.Stat(s.Root())
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", s.Root(), err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", s.Root())
		}
	}
	return nil
}

// DirectRuntime configures the runtime shim to call the content store API
// itself. Only the api source has an API to call.
func (a *App) DirectRuntime() (shim.Config, error) {
	if a.Config.Source != model.SourceAPI {
		return shim.Config{}, sgerr.InvalidField("proxy-base",
			fmt.Sprintf("the %s source has no API for the page to call; pass --proxy-base", a.Config.Source))
	}
	return shim.Config{
		Token:   a.token,
		APIBase: a.Config.APIBase,
		Owner:   a.Config.Owner,
		Repo:    a.Config.Repo,
		Branch:  a.Config.Branch,
		Rules:   a.Rules,
	}, nil
}

// ProxyRuntime configures the runtime shim to send intercepted requests to
// base. The token never reaches the page.
func (a *App) ProxyRuntime(base, reloadURL string) shim.Config {
	return shim.Config{
		Rules:     a.Rules,
		ProxyBase: base,
		ReloadURL: reloadURL,
	}
}

// Loader returns a document loader for the configured entry.
func (a *App) Loader(runtime shim.Config) *proxy.Loader {
	return proxy.NewLoader(a.Store, a.Rewriter, a.Config.Entry, runtime)
}

// WatchTargets returns the local paths whose changes should re-render the
// site. The api source has none.
func (a *App) WatchTargets() []api.WatchTarget {
	switch a.Config.Source {
	case model.SourceDir:
		return []api.WatchTarget{{Root: a.Config.LocalDir, Kind: api.FileChangeKindContent}}
	case model.SourceGit:
		return []api.WatchTarget{{Root: filepath.Join(a.Config.LocalDir, ".git", "refs"), Kind: api.FileChangeKindRef}}
	}
	return nil
}

// Fatal prints an error and exits.
func Fatal(err error) {
	PrintError("%v", err)
	os.Exit(1)
}
