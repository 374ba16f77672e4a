package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/tradedesk-client/internal/app"
	"github.com/samvad-hq/tradedesk-client/internal/config"
	"github.com/samvad-hq/tradedesk-client/internal/logger"
	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

const usage = `usage: apictl [flags] <command> [args]

commands:
  get <endpoint> [key=value ...]
  watch <endpoint> [key=value ...]
  post|put|patch <endpoint> [json-body]
  delete <endpoint> [json-body]
  login <username> <password>
  logout

flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "apictl failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("apictl", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	watchEvery := fs.Duration("watch-interval", 5*time.Second, "polling interval for watch")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", app.ErrUsage, err)
	}

	cmd, err := app.ParseCommand(fs.Args())
	if err != nil {
		fs.Usage()
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	defer rt.Close()

	if cmd.Name == app.CmdWatch {
		return rt.Watch(ctx, cmd, *watchEvery, func(v any, err error) error {
			if err != nil {
				logger.WarnObj("watch request failed", "error", describe(err))
				return nil
			}
			return printJSON(v)
		})
	}

	out, err := rt.Execute(ctx, cmd)
	if err != nil {
		return errors.New(describe(err))
	}
	if cmd.Name == app.CmdLogin || cmd.Name == app.CmdLogout {
		return nil
	}
	return printJSON(out)
}

// describe renders API errors with their status and body.
func describe(err error) string {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return err.Error()
	}
	if apiErr.Data == nil {
		return apiErr.Error()
	}
	data, mErr := json.Marshal(apiErr.Data)
	if mErr != nil {
		return apiErr.Error()
	}
	return fmt.Sprintf("%s: %s", apiErr.Error(), data)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
