package main

//                                      _
//  _ __ ___    __ _  ___   ___  ___  | |_
// | '_ ` _ \  / _` |/ __| / __|/ _ \ | __|
// | | | | | || (_| |\__ \| (__| (_) || |_
// |_| |_| |_| \__,_||___/ \___|\___/  \__|
//  .  .  .  a  little  helper  on  your  desktop

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"pkdindustries/mascot/internal/commands"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
	"pkdindustries/mascot/internal/shell"
	"pkdindustries/mascot/internal/tools"
)

const version = "0.1"

func main() {
	cmd := &cli.Command{
		Name:    "mascot",
		Usage:   "a little helper on your desktop",
		Version: version + " - http://github.com/pkdindustries/mascot",
		Flags:   config.GetFlags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	cfg := config.NewConfiguration(c)
	core.InitLogger(cfg.Shell.Verbose)
	if cfg.Shell.Verbose {
		cfg.PrintConfig()
	}

	tools.ClientVersion = version

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp := companion.New(cfg, companion.Deps{Hooks: commands.ShellHooks()})
	defer func() {
		if err := comp.Close(); err != nil {
			core.GetLogger().Warn("shutdown", "error", err)
		}
	}()

	return shell.Run(ctx, cfg, comp, version, os.Stdin, os.Stdout)
}
