package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/amterp/ra"
	"github.com/amterp/sitegate/internal/api"
	"github.com/amterp/sitegate/internal/render"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func registerServe(parent *ra.Cmd, ctx *CommandContext) {
	cmd := ra.NewCmd("serve")
	cmd.SetDescription("Render the site and serve it locally")

	ctx.ServePort, _ = ra.NewInt("port").
		SetOptional(true).
		SetDefault(0).
		SetShort("p").
		SetFlagOnly(true).
		SetUsage("Port to listen on (default from config; will try incrementally if in use)").
		Register(cmd)

	ctx.ServeNoOpen, _ = ra.NewBool("no-open").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Don't open browser automatically").
		Register(cmd)

	ctx.ServeNoWatch, _ = ra.NewBool("no-watch").
		SetOptional(true).
		SetFlagOnly(true).
		SetUsage("Don't re-render when local content changes").
		Register(cmd)

	ctx.ServeUsed, _ = parent.RegisterCmd(cmd)
}

func runServe(configPath string, port int, noOpen, noWatch, nonInteractive bool) {
	app, err := NewApp(configPath, !nonInteractive)
	if err != nil {
		Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.CheckAccess(ctx); err != nil {
		Fatal(err)
	}

	if port == 0 {
		port = app.Config.Port
	}
	// Find an available port starting from the requested one
	actualPort := findAvailablePort(port)
	url := fmt.Sprintf("http://localhost:%d", actualPort)
	reloadURL := fmt.Sprintf("ws://localhost:%d/api/v1/ws", actualPort)

	site := &api.Site{
		Loader: app.Loader(app.ProxyRuntime(url, reloadURL)),
		Store:  app.Store,
		Rules:  app.Rules,
		Host:   render.NewHost(),
		Source: app.Config.Describe(),
	}
	if err := site.Validate(); err != nil {
		Fatal(err)
	}

	var targets []api.WatchTarget
	if !noWatch {
		targets = app.WatchTargets()
	}
	server := api.NewServer(api.NewHandler(site), actualPort, targets...)

	PrintSuccess("Serving %s at %s", RenderBold(site.Source), RenderURL(url))
	fmt.Println(RenderMuted("Press Ctrl+C to stop"))

	if !noOpen {
		openBrowser(url)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		Fatal(err)
	}
}

// findAvailablePort tries ports starting from startPort until it finds one that's available.
func findAvailablePort(startPort int) int {
	maxAttempts := 100
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		if isPortAvailable(port) {
			return port
		}
	}
	// If we couldn't find a port after maxAttempts, return the original and let it fail naturally
	return startPort
}

// isPortAvailable checks if a port is available by attempting to listen on it.
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
