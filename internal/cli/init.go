package cli

import (
	"fmt"
	"strings"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/discovery"
	"github.com/amterp/sitegate/internal/git"
	"github.com/amterp/sitegate/internal/intercept"
	"github.com/amterp/sitegate/internal/model"
	"github.com/amterp/sitegate/internal/prompt"
	"github.com/amterp/sitegate/internal/store"
)

var sources = []string{model.SourceAPI, model.SourceDir, model.SourceGit}

func registerInit(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("init")
	cmd.SetDescription("Write a sitegate config")

	ctx.InitSource, _ = ra.NewString("source").
		SetShort("s").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Content source: api, dir or git").
		SetCompletionFunc(completeSources).
		Register(cmd)

	ctx.InitOwner, _ = ra.NewString("owner").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Repository owner (default: from git remote origin)").
		Register(cmd)

	ctx.InitRepo, _ = ra.NewString("repo").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Repository name (default: from git remote origin)").
		Register(cmd)

	ctx.InitBranch, _ = ra.NewString("branch").
		SetShort("b").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Branch holding the built site (default: gh-pages)").
		Register(cmd)

	ctx.InitDir, _ = ra.NewString("dir").
		SetShort("d").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Local directory or clone for the dir and git sources").
		Register(cmd)

	ctx.InitForce, _ = ra.NewBool("force").
		SetShort("f").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Overwrite an existing config").
		Register(cmd)

	ctx.InitUsed, _ = parent.RegisterCmd(cmd)
}

type initOptions struct {
	Source string
	Owner  string
	Repo   string
	Branch string
	Dir    string
	Force  bool
}

// initSuggestions are defaults offered when flags leave fields empty.
type initSuggestions struct {
	Owner    string
	Repo     string
	RepoRoot string
}

// suggestFromGit derives defaults from the repository in the working directory.
func suggestFromGit(client *git.Client) initSuggestions {
	var s initSuggestions
	if !client.IsRepo() {
		return s
	}
	if root, err := client.GetRepoRoot(); err == nil {
		s.RepoRoot = root
	}
	if url, err := client.GetRemoteURL("origin"); err == nil {
		s.Owner, s.Repo, _ = git.ParseRemote(url)
	}
	return s
}

func runInit(configPath string, opts initOptions, nonInteractive bool) {
	var prompter prompt.Prompter = prompt.NewHuhPrompter()
	if nonInteractive {
		prompter = &prompt.NoopPrompter{}
	}

	path, err := discovery.ResolveConfigPath(configPath)
	if err != nil {
		Fatal(err)
	}
	configStore := store.NewConfigStore(path)
	if configStore.Exists() && !opts.Force {
		overwrite, err := prompter.Confirm(fmt.Sprintf("%s exists. Overwrite?", configStore.Path()), false)
		if err != nil {
			Fatal(fmt.Errorf("config already exists at %s (use --force to overwrite)", configStore.Path()))
		}
		if !overwrite {
			return
		}
	}

	cfg, err := buildInitConfig(opts, prompter, suggestFromGit(git.NewClient()))
	if err != nil {
		Fatal(err)
	}

	if err := configStore.Save(cfg); err != nil {
		Fatal(err)
	}

	PrintSuccess("Wrote %s", configStore.Path())
	if cfg.Source == model.SourceAPI {
		PrintInfo("Set $SITEGATE_TOKEN or token_file to a token that can read %s/%s", cfg.Owner, cfg.Repo)
	}
}

// buildInitConfig fills a config from flags, then prompts, then suggestions.
// Non-interactive prompters leave suggestions and defaults in place.
func buildInitConfig(opts initOptions, prompter prompt.Prompter, suggest initSuggestions) (*model.SiteConfig, error) {
	cfg := &model.SiteConfig{
		Source:   opts.Source,
		Owner:    opts.Owner,
		Repo:     opts.Repo,
		Branch:   opts.Branch,
		LocalDir: opts.Dir,
	}

	if cfg.Source == "" {
		if choice, err := prompter.Select("Where is the built site?", sources); err == nil {
			cfg.Source = choice
		} else {
			cfg.Source = model.SourceAPI
		}
	}

	switch cfg.Source {
	case model.SourceAPI:
		cfg.Owner = ask(prompter, "Repository owner", cfg.Owner, suggest.Owner)
		cfg.Repo = ask(prompter, "Repository name", cfg.Repo, suggest.Repo)
		cfg.Branch = ask(prompter, "Branch", cfg.Branch, model.DefaultBranch)
	case model.SourceGit:
		cfg.LocalDir = ask(prompter, "Path to the clone", cfg.LocalDir, suggest.RepoRoot)
		cfg.Branch = ask(prompter, "Branch", cfg.Branch, model.DefaultBranch)
	case model.SourceDir:
		cfg.LocalDir = ask(prompter, "Path to the built site", cfg.LocalDir, "")
	}

	if prefixes, err := prompter.MultiSelect("Paths the page loads at runtime (none keeps all)", prefixNames()); err == nil && len(prefixes) > 0 {
		cfg.InterceptPrefixes = prefixes
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ask returns current if set, otherwise the prompted value, otherwise fallback.
func ask(prompter prompt.Prompter, title, current, fallback string) string {
	if current != "" {
		return current
	}
	value, err := prompter.Input(title, fallback)
	if err != nil || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func prefixNames() []string {
	names := make([]string, len(intercept.DefaultPrefixes))
	for i, p := range intercept.DefaultPrefixes {
		names[i] = strings.Trim(p, "/")
	}
	return names
}
