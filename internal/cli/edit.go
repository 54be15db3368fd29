package cli

import (
	"fmt"
	"os"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/discovery"
	"github.com/amterp/sitegate/internal/editor"
	"github.com/amterp/sitegate/internal/prompt"
	"github.com/amterp/sitegate/internal/store"
)

func registerEdit(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("edit")
	cmd.SetDescription("Edit the config in $EDITOR")

	ctx.EditUsed, _ = parent.RegisterCmd(cmd)
}

func runEdit(configPath string, nonInteractive bool) {
	var prompter prompt.Prompter = prompt.NewHuhPrompter()
	if nonInteractive {
		prompter = &prompt.NoopPrompter{}
	}

	path, err := discovery.ResolveConfigPath(configPath)
	if err != nil {
		Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			Fatal(fmt.Errorf("no config at %s: run 'sitegate init' first", path))
		}
		Fatal(err)
	}

	original := string(data)
	text := original
	ed := editor.NewEditor()
	for {
		text, err = ed.Edit(text)
		if err != nil {
			Fatal(fmt.Errorf("editor failed: %w", err))
		}

		verr := validateConfigText(path, text)
		if verr == nil {
			break
		}
		PrintError("%v", verr)
		again, err := prompter.Confirm("Edit again?", true)
		if err != nil || !again {
			Fatal(fmt.Errorf("config not saved"))
		}
	}

	if text == original {
		PrintInfo("No changes")
		return
	}
	// The edited text is written as is so comments survive
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		Fatal(err)
	}
	PrintSuccess("Saved %s", path)
}

// validateConfigText checks edited config contents before they are saved.
func validateConfigText(path, text string) error {
	cfg, err := store.Decode(path, []byte(text))
	if err != nil {
		return err
	}
	return cfg.Validate()
}
