// satmeshctl - Operator CLI for the satellite network emulation.
//
// Drives the controller API: manual link overrides, node and event listings,
// position dumps, and scripted scenarios from YAML files.
//
// Examples:
//
//	satmeshctl link set R0_0 R0_1 --down
//	satmeshctl link set R0_0 R0_1 --up --delay 12.5
//	satmeshctl nodes
//	satmeshctl events --limit 50
//	satmeshctl scenario play flap.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// App holds CLI state shared across all commands.
type App struct {
	controllerURL string
	logLevel      string

	client *apiClient
}

var app = &App{}

func main() {
	root := &cobra.Command{
		Use:          "satmeshctl",
		Short:        "Operator CLI for the satellite network emulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.SetLogLevel(app.logLevel); err != nil {
				return err
			}
			app.client = newAPIClient(app.controllerURL)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&app.controllerURL, "controller",
		config.EnvOr(config.EnvControllerURL, "http://localhost:8000"), "controller base URL")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "warning", "log level")

	root.AddCommand(newLinkCmd(), newNodesCmd(), newEventsCmd(), newPositionsCmd(), newScenarioCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLinkCmd() *cobra.Command {
	var (
		up    bool
		down  bool
		delay float64
	)
	set := &cobra.Command{
		Use:   "set <node1> <node2>",
		Short: "Override the state of an inter-satellite link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if up == down {
				return fmt.Errorf("specify exactly one of --up or --down")
			}
			upd := simapi.LinkUpdate{Node1Name: args[0], Node2Name: args[1], Up: up}
			if cmd.Flags().Changed("delay") {
				upd.Delay = &delay
			}
			return app.client.setLink(cmd.Context(), upd)
		},
	}
	set.Flags().BoolVar(&up, "up", false, "bring the link up")
	set.Flags().BoolVar(&down, "down", false, "take the link down")
	set.Flags().Float64Var(&delay, "delay", 0, "one-way delay in milliseconds")

	link := &cobra.Command{Use: "link", Short: "Link operations"}
	link.AddCommand(set)
	return link
}

func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List nodes observed by the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := app.client.nodes(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tHOST\tACTIVE\tLAST SEEN")
			for _, n := range nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
					n.Name, n.Type, n.Host, n.Active, n.LastSeen.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent controller events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.client.events(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%s  %s\n", ev.Timestamp.Format("15:04:05"), ev.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to show")
	return cmd
}

func newPositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Dump the latest topology snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.client.positions(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NODE\tLAT\tLON\tALT KM")
			for _, s := range data.Satellites {
				fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.1f\n", s.Name, s.Lat, s.Lon, s.Height)
			}
			for _, g := range data.GroundStations {
				fmt.Fprintf(w, "%s\t%.3f\t%.3f\t\n", g.Name, g.Lat, g.Lon)
			}
			for _, v := range data.Vessels {
				fmt.Fprintf(w, "%s\t%.3f\t%.3f\t\n", v.Name, v.Lat, v.Lon)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			upCount := 0
			for _, l := range data.SatelliteLinks {
				if l.Up {
					upCount++
				}
			}
			fmt.Println("links up:", strconv.Itoa(upCount)+"/"+strconv.Itoa(len(data.SatelliteLinks)))
			return nil
		},
	}
}
