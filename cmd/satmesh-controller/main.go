// satmesh-controller - Topology controller for the satellite network
// emulation.
//
// Loads the constellation configuration, builds and annotates the topology
// graph, provisions node agents, then reconciles dynamics snapshots arriving
// on the HTTP API against the state store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satmesh-network/satmesh/pkg/agent"
	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/controller"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/topology"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// App holds CLI state shared across the command.
type App struct {
	configFile     string
	listenAddr     string
	redisAddr      string
	redisDB        int
	baseSubnet     string
	loopbackSubnet string
	logLevel       string
}

var app = &App{}

func main() {
	root := &cobra.Command{
		Use:          "satmesh-controller",
		Short:        "Topology controller for the satellite network emulation",
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
	root.Flags().StringVar(&app.listenAddr, "listen", ":8000", "HTTP listen address")
	root.Flags().StringVar(&app.redisAddr, "redis", os.Getenv("REDIS_ADDR"),
		"redis address for the state store (empty: in-memory store)")
	root.Flags().IntVar(&app.redisDB, "redis-db", 0, "redis database number")
	root.Flags().StringVar(&app.baseSubnet, "base-subnet",
		config.EnvOr(config.EnvBaseSubnet, config.DefaultBaseSubnet), "link subnet pool")
	root.Flags().StringVar(&app.loopbackSubnet, "loopback-subnet",
		config.EnvOr(config.EnvLoopbackSubnet, config.DefaultLoopbackSubnet), "loopback subnet pool")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
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
	if err := topology.Annotate(graph, app.loopbackSubnet, app.baseSubnet); err != nil {
		return fmt.Errorf("annotating topology: %w", err)
	}

	var st store.Store
	if app.redisAddr != "" {
		rs := store.NewRedis(app.redisAddr, app.redisDB)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", app.redisAddr, err)
		}
		defer rs.Close()
		st = rs
	} else {
		util.Logger.Warn("no redis address configured, state will not survive restarts")
		st = store.NewMemory()
	}

	ctl := controller.New(graph, st, agent.NewClient(), app.loopbackSubnet)

	util.WithFields(map[string]interface{}{
		"rings":   cfg.Rings,
		"routers": cfg.Routers,
	}).Info("loaded network configuration")

	if err := ctl.Provision(ctx); err != nil {
		return fmt.Errorf("provisioning: %w", err)
	}

	go ctl.RunSweeper(ctx)

	util.WithField("addr", app.listenAddr).Info("controller API listening")
	return controller.NewServer(ctl).ListenAndServe(ctx, app.listenAddr)
}
