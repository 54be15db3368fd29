package cli

import (
	"context"
	"os"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/content"
)

func registerFetch(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("fetch")
	cmd.SetDescription("Print a file from the content source")

	ctx.FetchPath, _ = ra.NewString("path").
		SetUsage("Path or locator, e.g. data/records.json or /app/main.js").
		SetCompletionFunc(completeFetchPath).
		Register(cmd)

	ctx.FetchUsed, _ = parent.RegisterCmd(cmd)
}

func runFetch(configPath, loc string, nonInteractive bool) {
	app, err := NewApp(configPath, !nonInteractive)
	if err != nil {
		Fatal(err)
	}

	path := app.Normalizer.Normalize(loc)
	body, err := app.Store.FetchBytes(context.Background(), path)
	if err != nil {
		Fatal(err)
	}

	if !app.Rules.IsImage(path) {
		body = []byte(content.DecodeText(body))
	}
	if _, err := os.Stdout.Write(body); err != nil {
		Fatal(err)
	}
}
