package cli

import (
	"os"

	"github.com/amterp/ra"
)

// CommandContext holds parsed values and used flags for all commands.
type CommandContext struct {
	// Global flags
	ConfigPath     *string
	NonInteractive *bool
	JSON           *bool

	// init command
	InitUsed   *bool
	InitSource *string
	InitOwner  *string
	InitRepo   *string
	InitBranch *string
	InitDir    *string
	InitForce  *bool

	// serve command
	ServeUsed    *bool
	ServePort    *int
	ServeNoOpen  *bool
	ServeNoWatch *bool

	// render command
	RenderUsed      *bool
	RenderOutput    *string
	RenderProxyBase *string

	// fetch command
	FetchUsed *bool
	FetchPath *string

	// check command
	CheckUsed *bool

	// edit command
	EditUsed *bool

	// completion command
	CompletionUsed  *bool
	CompletionShell *string
}

// Run is the main entry point for the CLI.
func Run() {
	ctx := &CommandContext{}

	cmd := ra.NewCmd("sitegate")
	cmd.SetDescription("Serve a privately hosted static site as one self-contained page")

	ctx.ConfigPath, _ = ra.NewString("config").
		SetShort("c").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Config file (default: $SITEGATE_CONFIG, nearest sitegate.toml, or ~/.config/sitegate/config.toml)").
		Register(cmd, ra.WithGlobal(true))

	// Global flag for non-interactive mode
	ctx.NonInteractive, _ = ra.NewBool("non-interactive").
		SetShort("I").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Fail instead of prompting for missing input").
		Register(cmd, ra.WithGlobal(true))

	ctx.JSON, _ = ra.NewBool("json").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Output as JSON").
		Register(cmd, ra.WithGlobal(true))

	// Register all subcommands
	registerInit(cmd, ctx)
	registerServe(cmd, ctx)
	registerRender(cmd, ctx)
	registerFetch(cmd, ctx)
	registerCheck(cmd, ctx)
	registerEdit(cmd, ctx)
	registerCompletion(cmd, ctx)

	// Parse command line
	cmd.ParseOrExit(os.Args[1:])

	// Execute the appropriate command
	executeCommand(ctx, cmd)
}

func executeCommand(ctx *CommandContext, rootCmd *ra.Cmd) {
	switch {
	case *ctx.InitUsed:
		if *ctx.JSON {
			warnJsonNotSupported("init")
		}
		runInit(*ctx.ConfigPath, initOptions{
			Source: *ctx.InitSource,
			Owner:  *ctx.InitOwner,
			Repo:   *ctx.InitRepo,
			Branch: *ctx.InitBranch,
			Dir:    *ctx.InitDir,
			Force:  *ctx.InitForce,
		}, *ctx.NonInteractive)

	case *ctx.ServeUsed:
		if *ctx.JSON {
			warnJsonNotSupported("serve")
		}
		runServe(*ctx.ConfigPath, *ctx.ServePort, *ctx.ServeNoOpen, *ctx.ServeNoWatch, *ctx.NonInteractive)

	case *ctx.RenderUsed:
		if *ctx.JSON {
			warnJsonNotSupported("render")
		}
		runRender(*ctx.ConfigPath, *ctx.RenderOutput, *ctx.RenderProxyBase, *ctx.NonInteractive)

	case *ctx.FetchUsed:
		if *ctx.JSON {
			warnJsonNotSupported("fetch")
		}
		runFetch(*ctx.ConfigPath, *ctx.FetchPath, *ctx.NonInteractive)

	case *ctx.CheckUsed:
		runCheck(*ctx.ConfigPath, *ctx.JSON, *ctx.NonInteractive)

	case *ctx.EditUsed:
		if *ctx.JSON {
			warnJsonNotSupported("edit")
		}
		runEdit(*ctx.ConfigPath, *ctx.NonInteractive)

	case *ctx.CompletionUsed:
		runCompletion(*ctx.CompletionShell, rootCmd)
	}
}
