package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/shim"
)

func registerRender(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("render")
	cmd.SetDescription("Write the self-contained document")

	ctx.RenderOutput, _ = ra.NewString("output").
		SetShort("o").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Output file (default: stdout)").
		Register(cmd)

	ctx.RenderProxyBase, _ = ra.NewString("proxy-base").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Send intercepted requests to this base URL instead of the content API").
		Register(cmd)

	ctx.RenderUsed, _ = parent.RegisterCmd(cmd)
}

func runRender(configPath, output, proxyBase string, nonInteractive bool) {
	app, err := NewApp(configPath, !nonInteractive)
	if err != nil {
		Fatal(err)
	}

	var runtime shim.Config
	if proxyBase != "" {
		runtime = app.ProxyRuntime(proxyBase, "")
	} else if runtime, err = app.DirectRuntime(); err != nil {
		Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := app.Loader(runtime).Load(ctx)
	if err != nil {
		Fatal(err)
	}

	if output == "" || output == "-" {
		fmt.Print(doc)
		return
	}

	// A direct-mode document carries the access token
	perm := os.FileMode(0644)
	if runtime.Token != "" {
		perm = 0600
	}
	if err := os.WriteFile(output, []byte(doc), perm); err != nil {
		Fatal(err)
	}

	PrintSuccess("Wrote %s (%d bytes)", output, len(doc))
	if runtime.Token != "" {
		PrintWarning("The document embeds the access token; do not publish it")
	}
}
