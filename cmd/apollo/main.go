package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/thinkscotty/apollo/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `Usage: apollo [flags] <command> [command flags]

Commands:
  abstract     summarize a text file, a URL, or every URL found in a file
  cluster      cluster a JSON file of articles or the items of feeds
  continuous   merge new articles into the stored clustering result
  watch        run continuous clustering over the configured feeds on a schedule
  runs         show recent runs and store statistics
  discover     find the RSS/Atom feed advertised by a web page

Flags:
`

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Apollo %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Optional: values from .env become environment overrides.
	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "abstract":
		err = runAbstract(ctx, cfg, args)
	case "cluster":
		err = runCluster(ctx, cfg, args)
	case "continuous":
		err = runContinuous(ctx, cfg, args)
	case "watch":
		err = runWatch(ctx, cfg, args)
	case "runs":
		err = runRuns(ctx, cfg, args)
	case "discover":
		err = runDiscover(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}
