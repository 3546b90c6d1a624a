// Workbench: development workflow MCP server.
//
// An MCP server that gives AI coding tools a shared workflow engine:
// resumable analysis sessions, complexity-aware execution phases, a
// command registry, cross-command fact exchange, and a persistent
// finding archive.
//
// Usage:
//
//	workbench serve    # Start MCP server (stdio transport)
//	workbench update   # Update to the latest version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	wbserver "github.com/ccplugins/workbench/internal/server"
	"github.com/ccplugins/workbench/internal/updater"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("workbench v%s\n", wbserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := wbserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go notifyIfOutdated()

	// The stdio server manages its own lifecycle; we only install the
	// handler so Ctrl-C exits cleanly instead of dumping a stack.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

// notifyIfOutdated runs a best-effort version check and prints a notice
// to stderr when a newer release exists. Network failures are silent.
func notifyIfOutdated() {
	result := updater.CheckVersion(wbserver.Version)
	if result.Outdated {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: workbench update\n"+
				"     Release: %s\n\n",
			result.Current, result.Latest, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest release.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(wbserver.Version)
	if !result.Outdated {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.Current)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.Current, result.Latest)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(wbserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.Latest)
	fmt.Fprintf(os.Stderr, "   Restart workbench to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Workbench v%s — development workflow MCP server

Usage:
  workbench serve    Start the MCP server (stdio transport)
  workbench update   Update to the latest version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "workbench": {
        "command": "workbench",
        "args": ["serve"]
      }
    }
  }

Learn more: https://github.com/ccplugins/workbench
`, wbserver.Version)
}
