package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/console"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/environment"
	"github.com/openfroyo/froyodesk/pkg/steps"
	"github.com/openfroyo/froyodesk/pkg/stores"
	"github.com/openfroyo/froyodesk/pkg/system"
	"github.com/openfroyo/froyodesk/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds flushing telemetry after the run.
const shutdownTimeout = 10 * time.Second

type provisionOptions struct {
	dryRun bool
	yes    bool
	only   []string
	skip   []string
}

func newProvisionCommand() *cobra.Command {
	var opts provisionOptions

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision this machine for a user",
		Long: `Provision this machine for the invoking user.

This command:
  - Requires root and the configured distribution
  - Resolves the target user from SUDO_USER or asks for one on the terminal
  - Asks for confirmation (unless --yes)
  - Runs every step in order, skipping the ones already done
  - Prints a summary naming the steps that failed

The run stops at once if the package database refresh fails. Any other
failed step is reported and the run continues.`,
		Example: `  # Provision the user who ran sudo
  sudo froyodesk provision

  # Show what would run without changing anything
  sudo froyodesk provision --dry-run

  # Only install fonts and tools, without asking
  sudo froyodesk provision --yes --only fonts --only tool:starship`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "check every step without changing the system")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "run only the named steps")
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "skip the named steps")

	return cmd
}

func runProvision(ctx context.Context, cmd *cobra.Command, opts provisionOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.NewTelemetry(telemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log.Logger = tel.Logger.Zerolog()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	out := console.New(cmd.OutOrStdout(), noColor)
	fail := func(err error) error {
		tel.Metrics.RecordFatal(err)
		out.Fatal(err)
		return reported(err)
	}

	prompter := &ttyPrompter{}
	defer prompter.Close()

	resolver := environment.NewResolver(platform(cfg.Platform), prompter, system.ExecRunner{})
	rc, err := resolver.Resolve(ctx)
	if err != nil {
		return fail(err)
	}
	rc.DryRun = opts.dryRun

	deps := steps.NewDeps(system.ExecRunner{}, nil)
	deps.Logger = tel.Logger.NewComponentLogger("steps").WithRunID(rc.RunID).Zerolog()
	deps.Progress = out.Progress

	plan, err := steps.Filter(steps.Build(cfg, deps), opts.only, opts.skip)
	if err != nil {
		return err
	}

	out.Info(fmt.Sprintf("Provisioning %s (%s): %s", rc.Username, rc.UserHome, strings.Join(steps.Names(plan), ", ")))
	if opts.dryRun {
		out.Info("Dry run: no changes will be made")
	} else if !opts.yes {
		if err := confirm(prompter, rc); err != nil {
			return fail(err)
		}
	}

	orchOpts := []engine.Option{
		engine.WithLogger(tel.Logger.NewComponentLogger("orchestrator").Zerolog()),
		engine.WithObserver(out),
	}
	for _, obs := range tel.Observers() {
		orchOpts = append(orchOpts, engine.WithObserver(obs))
	}
	if journal := openJournal(ctx, cfg.Journal); journal != nil {
		defer journal.Close()
		orchOpts = append(orchOpts, engine.WithObserver(journal))
	}

	failures, err := engine.NewOrchestrator(orchOpts...).Run(ctx, rc, plan)
	if err != nil {
		out.Fatal(err)
		return reported(err)
	}

	out.Summary(engine.Report(failures))
	return nil
}

// confirm asks the operator once; anything but yes is fatal.
func confirm(p environment.Prompter, rc *engine.RunContext) error {
	ok, err := p.Confirm(fmt.Sprintf("Provision this machine for %s?", rc.Username))
	if err != nil {
		return engine.NewFatalError(engine.FatalReasonDeclined, "no confirmation", err)
	}
	if !ok {
		return engine.NewFatalError(engine.FatalReasonDeclined, "provisioning declined", nil)
	}
	return nil
}

// openJournal opens the run journal when enabled. A journal that cannot be
// opened is logged and the run continues without it.
func openJournal(ctx context.Context, cfg config.JournalConfig) *stores.Journal {
	if !cfg.Enabled {
		return nil
	}
	journal, err := stores.Open(ctx, stores.Config{Path: cfg.Path})
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Path).Msg("Run journal unavailable")
		return nil
	}
	return journal
}

func platform(cfg config.PlatformConfig) environment.Platform {
	return environment.Platform{
		Distribution: cfg.Distribution,
		Detector:     cfg.Detector,
		DetectorArgs: cfg.DetectorArgs,
	}
}

// ttyPrompter opens the controlling terminal on first use, so runs that
// need no prompt work without one.
type ttyPrompter struct {
	tty *environment.LinePrompter
}

func (p *ttyPrompter) open() error {
	if p.tty != nil {
		return nil
	}
	tty, err := environment.OpenTTY()
	if err != nil {
		return err
	}
	p.tty = tty
	return nil
}

func (p *ttyPrompter) Confirm(question string) (bool, error) {
	if err := p.open(); err != nil {
		return false, err
	}
	return p.tty.Confirm(question)
}

func (p *ttyPrompter) AskUsername(validate func(string) error) (string, error) {
	if err := p.open(); err != nil {
		return "", err
	}
	return p.tty.AskUsername(validate)
}

func (p *ttyPrompter) Close() error {
	if p.tty == nil {
		return nil
	}
	return p.tty.Close()
}
