// Command as-router runs one AS router: it loads its neighbor links from
// a config file and/or --links flag, dials a UDP socket per neighbor,
// and drives the reactor event loop until it receives a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/route-beacon/as-router/internal/addr"
	"github.com/route-beacon/as-router/internal/config"
	"github.com/route-beacon/as-router/internal/httpapi"
	"github.com/route-beacon/as-router/internal/logging"
	"github.com/route-beacon/as-router/internal/metrics"
	"github.com/route-beacon/as-router/internal/neighbor"
	"github.com/route-beacon/as-router/internal/reactor"
	"github.com/route-beacon/as-router/internal/transport"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: as-router <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve   Start the router")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --links <spec>    Comma-separated port=address=relation triples")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

func parseFlags(args []string) (configPath, linksFlag, logLevel string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--links":
			if i+1 < len(args) {
				linksFlag = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		}
	}
	return
}

func loadConfig(args []string) (*config.Config, *zap.Logger) {
	configPath, linksFlag, logLevelOverride := parseFlags(args)

	cfg, err := config.Load(configPath, linksFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if logLevelOverride != "" {
		cfg.Service.LogLevel = logLevelOverride
	}

	logger, err := logging.New(cfg.Service.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

func runServe(args []string) {
	cfg, logger := loadConfig(args)
	defer logger.Sync()

	metrics.Register()

	logger.Info("starting as-router",
		zap.Uint32("asn", cfg.ASN),
		zap.Int("links", len(cfg.Links)),
		zap.String("http_listen", cfg.Service.HTTPListen),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, links, err := buildNeighbors(cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up neighbor links", zap.Error(err))
	}
	defer func() {
		for _, l := range links {
			l.Close()
		}
	}()

	r := reactor.New(cfg.ASN, reg, logger.Named("reactor"))

	dispatcher := transport.NewDispatcher(256)
	var wg sync.WaitGroup
	for _, l := range links {
		wg.Add(1)
		go func(l *transport.Link) {
			defer wg.Done()
			dispatcher.Watch(ctx, l)
		}(l)
	}

	httpServer := httpapi.NewServer(cfg.Service.HTTPListen, r, logger.Named("httpapi"))
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	r.SendHandshakes()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Run(ctx, dispatcher)
	}()

	logger.Info("as-router started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("reactor and transport stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, some goroutines may not have finished")
	}

	logger.Info("as-router stopped")
}

// buildNeighbors dials one Link per configured neighbor and assembles
// the registry the reactor runs against.
func buildNeighbors(cfg *config.Config, logger *zap.Logger) (*neighbor.Registry, []*transport.Link, error) {
	var neighbors []*neighbor.Neighbor
	var links []*transport.Link

	for _, lc := range cfg.Links {
		neighborAddr, err := addr.ToInt(lc.Neighbor)
		if err != nil {
			return nil, nil, fmt.Errorf("main: link neighbor: %w", err)
		}
		relation, err := neighbor.ParseRelation(lc.Relation)
		if err != nil {
			return nil, nil, fmt.Errorf("main: link relation: %w", err)
		}
		link, err := transport.Dial(neighborAddr, lc.Port)
		if err != nil {
			return nil, nil, fmt.Errorf("main: dialing neighbor %s: %w", lc.Neighbor, err)
		}
		links = append(links, link)
		neighbors = append(neighbors, &neighbor.Neighbor{
			Address:  neighborAddr,
			Relation: relation,
			Link:     link,
		})
		logger.Info("dialed neighbor link",
			zap.String("neighbor", lc.Neighbor),
			zap.String("relation", lc.Relation),
			zap.Uint16("port", lc.Port),
		)
	}

	reg, err := neighbor.New(neighbors)
	if err != nil {
		return nil, nil, fmt.Errorf("main: building neighbor registry: %w", err)
	}
	return reg, links, nil
}
