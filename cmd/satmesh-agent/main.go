// satmesh-agent - Per-node agent for the satellite network emulation.
//
// Runs inside each node's network sandbox, accepts configuration RPCs from
// the controller and reports the node's status upstream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satmesh-network/satmesh/pkg/agent"
	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// App holds CLI state shared across the command.
type App struct {
	nodeName      string
	nodeType      string
	controllerURL string
	satSupernet   string
	logLevel      string
}

var app = &App{}

func main() {
	root := &cobra.Command{
		Use:          "satmesh-agent",
		Short:        "Node agent for the satellite network emulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.SetLogLevel(app.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	hostname, _ := os.Hostname()
	root.Flags().StringVar(&app.nodeName, "name",
		config.EnvOr(config.EnvNodeName, hostname), "node name")
	root.Flags().StringVar(&app.nodeType, "type",
		config.EnvOr(config.EnvNodeType, simapi.TypeSatellite), "node type (satellite, ground_station, vessel)")
	root.Flags().StringVar(&app.controllerURL, "controller",
		config.EnvOr(config.EnvControllerURL, config.DefaultControllerURL), "controller base URL")
	root.Flags().StringVar(&app.satSupernet, "satellite-supernet",
		config.EnvOr(config.EnvLoopbackSubnet, config.DefaultLoopbackSubnet),
		"address range ground/vessel forwarding is restricted to")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	switch app.nodeType {
	case simapi.TypeSatellite, simapi.TypeGround, simapi.TypeVessel:
	default:
		return fmt.Errorf("%w: unknown node type %q", util.ErrInvalidConfig, app.nodeType)
	}

	a := agent.New(app.nodeName, app.nodeType, app.controllerURL, app.satSupernet, agent.NewHostSystem())

	util.WithFields(map[string]interface{}{
		"node": app.nodeName,
		"type": app.nodeType,
	}).Info("agent starting")

	go func() {
		if err := agent.NewMonitor(a).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			util.WithNode(app.nodeName).Errorf("monitor stopped: %v", err)
		}
	}()

	return agent.NewServer(a).ListenAndServe(ctx)
}
