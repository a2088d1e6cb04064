// cmd/steely-mcp/main.go
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go-steely/internal/logging"
	handlers "go-steely/internal/server"

	"github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	mode := flag.String("mode", "stdio", "Transport mode: stdio or sse")
	addr := flag.String("addr", ":8080", "HTTP listen address for SSE")
	path := flag.String("path", "/mcp/sse", "HTTP path for SSE connections")
	verbose := flag.Bool("v", false, "Log debug diagnostics to stderr")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := logging.New(level)

	s := handlers.NewMCPServer(version, log)

	switch *mode {
	case "stdio":
		if err := server.ServeStdio(s); err != nil {
			log.Error("stdio server stopped", "err", err)
			os.Exit(1)
		}
	case "sse":
		// The message endpoint sits next to the SSE one: /mcp/sse -> /mcp/message.
		ssePath := *path
		messagePath := strings.Replace(ssePath, "/sse", "/message", 1)
		if messagePath == ssePath {
			messagePath = strings.TrimRight(ssePath, "/") + "/message"
		}
		sseServer := server.NewSSEServer(s,
			server.WithSSEEndpoint(ssePath),
			server.WithMessageEndpoint(messagePath),
		)

		mux := http.NewServeMux()
		mux.Handle(ssePath, sseServer.SSEHandler())
		mux.Handle(messagePath, sseServer.MessageHandler())

		log.Info("starting SSE server", "addr", *addr, "sse", ssePath, "message", messagePath)
		if err := http.ListenAndServe(*addr, mux); err != nil {
			log.Error("http server stopped", "err", err)
			os.Exit(1)
		}
	default:
		log.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}
