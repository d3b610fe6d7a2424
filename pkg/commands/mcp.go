package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/runner/mcp"
)

func addMCP(topLevel *cobra.Command) {
	var (
		transport string
		httpHost  string
		httpPort  int
		httpPath  string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server",
		Long: `Launch an MCP server that exposes the signed-in journal, its entries,
pins, favorites and streak to MCP clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				if _, err := a.RequireIdentity(ctx); err != nil {
					return err
				}
				go func() {
					if err := a.Session.Run(ctx); err != nil && ctx.Err() == nil {
						a.Log.Error("session stopped", "err", err)
					}
				}()

				path := strings.TrimSpace(httpPath)
				if path == "" {
					path = "/mcp"
				}
				if !strings.HasPrefix(path, "/") {
					path = "/" + path
				}

				runner := mcp.Runner{
					Service:          mcp.NewService(a.Journal, a.Compose),
					Name:             "whisper",
					Version:          "dev",
					HTTPEndpointPath: path,
				}

				switch strings.ToLower(strings.TrimSpace(transport)) {
				case string(mcp.TransportHTTP):
					host := strings.TrimSpace(httpHost)
					if host == "" {
						host = "127.0.0.1"
					}
					if httpPort < 0 || httpPort > 65535 {
						return fmt.Errorf("invalid http-port %d", httpPort)
					}
					addr := net.JoinHostPort(host, strconv.Itoa(httpPort))
					runner.Transport = mcp.TransportHTTP
					runner.HTTPListenAddr = addr
					runner.OnHTTPListening = func(l net.Addr) {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "MCP HTTP server listening on http://%s%s\n", l, path)
					}
				case "", string(mcp.TransportStdio):
					runner.Transport = mcp.TransportStdio
				default:
					return fmt.Errorf("unsupported transport %q (expected http or stdio)", transport)
				}

				return runner.Do(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", string(mcp.TransportStdio), "transport to use: stdio or http")
	cmd.Flags().StringVar(&httpHost, "http-host", "127.0.0.1", "host/interface for HTTP transport")
	cmd.Flags().IntVar(&httpPort, "http-port", 8080, "port for HTTP transport (use 0 for random)")
	cmd.Flags().StringVar(&httpPath, "http-path", "/mcp", "HTTP endpoint path")

	topLevel.AddCommand(cmd)
}
