// Command extracttest runs every content extraction strategy against a URL
// and reports what each one produced.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/extractor"
	"github.com/ibeckermayer/hnpulse/internal/logging"
)

func main() {
	browserEnabled := flag.Bool("browser", false, "include the headless browser strategy")
	headless := flag.Bool("headless", true, "run the browser headless")
	timeout := flag.Duration("timeout", 20*time.Second, "per-strategy timeout")
	preview := flag.Int("preview", 300, "characters of text to print per strategy")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: extracttest [flags] <url>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	url := flag.Arg(0)

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level)
	defer logger.Sync()

	cfg := config.Default().Extraction
	cfg.TimeoutSeconds = int(timeout.Seconds())
	cfg.BrowserEnabled = *browserEnabled
	cfg.Headless = *headless

	ex := extractor.NewFromConfig(cfg, logger)
	for _, a := range ex.Attempts(context.Background(), url) {
		status := "ok"
		switch {
		case a.Err != nil:
			status = "error: " + a.Err.Error()
		case !a.Result.Found():
			status = "empty"
		}
		fmt.Printf("== %s (%s) %s\n", a.Strategy, a.Took.Round(time.Millisecond), status)
		if a.Result.Found() {
			fmt.Printf("   %d chars text, %d chars html\n", len(a.Result.Text), len(a.Result.HTML))
			fmt.Println("   " + strings.ReplaceAll(clip(a.Result.Text, *preview), "\n", "\n   "))
		}
	}
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
