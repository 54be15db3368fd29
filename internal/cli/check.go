package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/rewrite"
)

const checkTimeout = 30 * time.Second

func registerCheck(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("check")
	cmd.SetDescription("Verify access to the site and list what would be inlined")

	ctx.CheckUsed, _ = parent.RegisterCmd(cmd)
}

func runCheck(configPath string, jsonOutput, nonInteractive bool) {
	app, err := NewApp(configPath, !nonInteractive)
	if err != nil {
		Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := app.CheckAccess(ctx); err != nil {
		Fatal(err)
	}

	entry := app.Normalizer.Normalize(app.Config.Entry)
	src, err := app.Store.Fetch(ctx, entry)
	if err != nil {
		Fatal(fmt.Errorf("access ok, but the entry document could not be read: %w", err))
	}
	doc, err := rewrite.Parse(src)
	if err != nil {
		Fatal(err)
	}
	refs := app.Rewriter.References(doc)

	if jsonOutput {
		if err := printJson(NewCheckOutput(app.Config.Describe(), entry, refs, app.Normalizer)); err != nil {
			Fatal(err)
		}
		return
	}

	PrintSuccess("Access to %s confirmed", RenderBold(app.Config.Describe()))
	PrintInfo("Entry document %s", entry)

	inScope := 0
	for _, ref := range refs {
		if !ref.InScope() {
			fmt.Printf("  %s %s\n", RenderMuted(fmt.Sprintf("%-10s", ref.Kind)), RenderMuted(ref.Locator+" (left as is)"))
			continue
		}
		inScope++
		fmt.Printf("  %-10s %s %s\n", ref.Kind, ref.Locator, RenderMuted("-> "+app.Normalizer.Normalize(ref.Locator)))
	}
	fmt.Println(LabelValue("Inlined", fmt.Sprintf("%d of %d references", inScope, len(refs)), 8))
}
