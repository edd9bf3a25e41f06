// satmesh-dynamics - Dynamics engine for the satellite network emulation.
//
// Propagates satellite orbits, moves vessels along their waypoints, derives
// the feasible link set each tick and pushes full topology snapshots to the
// controller.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/dynamics"
	"github.com/satmesh-network/satmesh/pkg/topology"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// App holds CLI state shared across the command.
type App struct {
	configFile    string
	controllerURL string
	tick          time.Duration
	logLevel      string
}

var app = &App{}

func main() {
	root := &cobra.Command{
		Use:          "satmesh-dynamics",
		Short:        "Orbital dynamics engine for the satellite network emulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.SetLogLevel(app.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	root.Flags().StringVar(&app.configFile, "config",
		config.EnvOr(config.EnvConfigFile, "/etc/satmesh/network.ini"), "network configuration file")
	root.Flags().StringVar(&app.controllerURL, "controller",
		config.EnvOr(config.EnvControllerURL, config.DefaultControllerURL), "controller base URL")
	root.Flags().DurationVar(&app.tick, "tick", dynamics.DefaultTick, "simulation time slice")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(app.configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	graph, err := topology.CreateNetwork(cfg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}

	engine, err := dynamics.New(graph, cfg.MinElevation)
	if err != nil {
		return fmt.Errorf("building dynamics engine: %w", err)
	}

	util.WithFields(map[string]interface{}{
		"rings":   cfg.Rings,
		"routers": cfg.Routers,
		"tick":    app.tick.String(),
	}).Info("starting simulation loop")

	sink := dynamics.NewControllerClient(app.controllerURL)
	runner := dynamics.NewRunner(engine, sink, app.tick)
	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		util.Logger.Info("simulation stopped")
		return nil
	}
	return err
}
