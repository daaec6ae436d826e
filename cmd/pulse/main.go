// Command pulse is a dev CLI for hnpulse maintenance and debugging tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/app"
	browseropts "github.com/ibeckermayer/hnpulse/internal/browser"
	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		withApp(runCycle)
	case "evict":
		withApp(runEvict)
	case "show":
		if len(os.Args) < 3 {
			fmt.Println("Usage: pulse show <id>")
			os.Exit(1)
		}
		withApp(runShow)
	case "feed":
		withApp(runFeed)
	case "bot-test":
		runBotTest()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: pulse open <config|cache|feed>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: pulse <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run            Run one cycle now and print the report")
	fmt.Println("  evict [days]   Delete items not updated within days (default: config)")
	fmt.Println("  show <id>      Print a cached item as JSON")
	fmt.Println("  feed           Rebuild and publish the feed from the cache")
	fmt.Println("  bot-test       Open bot.sannysoft.com with the extraction browser options")
	fmt.Println("  open config    Open config file in default editor")
	fmt.Println("  open cache     Open cache directory in file explorer")
	fmt.Println("  open feed      Open the published feed page")
}

func withApp(fn func(ctx context.Context, a *app.App) error) {
	cfg, err := config.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level)
	defer logger.Sync()

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build components", zap.Error(err))
	}
	a := app.New(cfg, components, logger)
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func runCycle(ctx context.Context, a *app.App) error {
	report, err := a.RunCycle(ctx)
	if report != nil {
		report.Items = nil
		printJSON(report)
	}
	return err
}

func runEvict(ctx context.Context, a *app.App) error {
	if len(os.Args) > 2 {
		days, err := strconv.Atoi(os.Args[2])
		if err != nil || days < 1 {
			return fmt.Errorf("invalid days %q", os.Args[2])
		}
		a.Config().Store.RetentionDays = days
	}
	n, err := a.Evict(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Evicted %d items\n", n)
	return nil
}

func runShow(ctx context.Context, a *app.App) error {
	it, err := a.Item(ctx, os.Args[2])
	if err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("item %s not in cache", os.Args[2])
	}
	printJSON(it)
	return nil
}

func runFeed(ctx context.Context, a *app.App) error {
	return a.Publish(ctx)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func runBotTest() {
	log.Println("Opening bot.sannysoft.com with extraction browser options...")

	opts := browseropts.Options(false, "") // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			log.Printf("Failed to navigate: %v", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()

	log.Println("Done.")
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "feed":
		withApp(func(_ context.Context, a *app.App) error { return a.ViewFeed() })
		return
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}
