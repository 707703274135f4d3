// Command server runs the mailsync REST API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/simp-lee/mailsync/internal/app"
	"github.com/simp-lee/mailsync/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	migrate := flag.Bool("migrate", false, "migrate the database schema on start in release mode")
	flag.Parse()

	if err := run(*configPath, app.Options{Migrate: *migrate}); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(configPath string, opts app.Options) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	return a.Run()
}
