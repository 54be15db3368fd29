package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/discovery"
	"github.com/amterp/sitegate/internal/model"
	"github.com/amterp/sitegate/internal/store"
)

// completionCtx provides lightweight config access for shell completion.
// Completion functions run during ParseOrExit, before NewApp() is called,
// and must never prompt for a token, so only the config file is read.
type completionCtx struct {
	once sync.Once
	cfg  *model.SiteConfig
	err  error
}

var compCtx completionCtx

func initCompletionCtx() {
	compCtx.once.Do(func() {
		path, err := discovery.ResolveConfigPath(configFromArgs(os.Args))
		if err != nil {
			compCtx.err = err
			return
		}
		cfg, err := store.NewConfigStore(path).Load()
		if err != nil {
			// Graceful degradation: no completions if the config is broken
			compCtx.err = err
			return
		}
		compCtx.cfg = cfg
	})
}

// completeSources returns content source names matching the given prefix.
func completeSources(toComplete string) ([]string, ra.CompletionDirective) {
	var result []string
	for _, s := range sources {
		if strings.HasPrefix(s, toComplete) {
			result = append(result, s)
		}
	}
	return result, ra.CompletionDirectiveNoFileComp
}

// completeFetchPath offers the entry document and intercepted namespaces.
func completeFetchPath(toComplete string) ([]string, ra.CompletionDirective) {
	initCompletionCtx()
	if compCtx.err != nil {
		return nil, ra.CompletionDirectiveNoFileComp
	}

	candidates := []string{compCtx.cfg.Entry}
	for _, p := range compCtx.cfg.Rules().Prefixes() {
		candidates = append(candidates, strings.TrimPrefix(p, "/"))
	}

	var result []string
	for _, c := range candidates {
		if strings.HasPrefix(c, toComplete) {
			result = append(result, c)
		}
	}
	return result, ra.CompletionDirectiveNoFileComp
}

// configFromArgs scans the argument list for an explicit -c/--config flag value.
func configFromArgs(args []string) string {
	for i, arg := range args {
		// --config=value or -c=value (skip empty values so fallback logic runs)
		if strings.HasPrefix(arg, "--config=") {
			if v := strings.TrimPrefix(arg, "--config="); v != "" {
				return v
			}
		}
		if strings.HasPrefix(arg, "-c=") {
			if v := strings.TrimPrefix(arg, "-c="); v != "" {
				return v
			}
		}
		// --config value or -c value
		if (arg == "--config" || arg == "-c") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// registerCompletion adds the "sitegate completion <shell>" command.
func registerCompletion(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("completion")
	cmd.SetDescription("Output shell completion script")

	ctx.CompletionShell, _ = ra.NewString("shell").
		SetUsage("Shell type").
		SetEnumConstraint([]string{"bash", "zsh"}).
		Register(cmd)

	ctx.CompletionUsed, _ = parent.RegisterCmd(cmd)
}

// runCompletion outputs the shell completion script to stdout.
func runCompletion(shell string, rootCmd *ra.Cmd) {
	var err error
	switch shell {
	case "bash":
		err = rootCmd.GenBashCompletion(os.Stdout)
	case "zsh":
		err = rootCmd.GenZshCompletion(os.Stdout)
	default:
		Fatal(fmt.Errorf("unsupported shell: %s (supported: bash, zsh)", shell))
	}
	if err != nil {
		Fatal(fmt.Errorf("failed to generate completion script: %w", err))
	}
}
