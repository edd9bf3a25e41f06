package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/satmesh-network/satmesh/pkg/util"
)

// System is the host-level surface the agent programs: interfaces, delay
// shaping, routes, routing daemon files and the forwarding policy. Split out
// so handlers can be tested without touching the host.
type System interface {
	EnsureInterface(name, ip string, prefixLen int) error
	SetInterfaceStatus(name string, up bool) error
	ApplyDelay(iface string, delayMs float64) error
	SetDefaultRoute(via string) error
	WriteFRRFiles(files map[string]string) error
	EnforceIsolation(satelliteSupernet string, allowedPeers []string) error
	Ping(ip string) (float64, error)
	DaemonAlive(service string) bool
	Execute(ctx context.Context, argv []string) (string, string, int, error)
}

// HostSystem programs the host through ip/tc/iptables and the FRR init
// script, the way the agent runs inside its network sandbox.
type HostSystem struct {
	FRRDir string // defaults to /etc/frr
}

// NewHostSystem creates a System bound to the real host.
func NewHostSystem() *HostSystem {
	return &HostSystem{FRRDir: "/etc/frr"}
}

func run(argv ...string) error {
	out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %v (%s)", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// EnsureInterface creates the interface if missing and assigns the address.
// "ip addr replace" keeps the call idempotent.
func (s *HostSystem) EnsureInterface(name, ip string, prefixLen int) error {
	if _, err := os.Stat("/sys/class/net/" + name); err != nil {
		if err := run("ip", "link", "add", name, "type", "dummy"); err != nil {
			return err
		}
	}
	if err := run("ip", "link", "set", name, "up"); err != nil {
		return err
	}
	if ip != "" {
		addr := fmt.Sprintf("%s/%d", ip, prefixLen)
		if err := run("ip", "addr", "replace", addr, "dev", name); err != nil {
			return err
		}
	}
	return nil
}

func (s *HostSystem) SetInterfaceStatus(name string, up bool) error {
	state := "down"
	if up {
		state = "up"
	}
	return run("ip", "link", "set", name, state)
}

// ApplyDelay installs a netem egress delay on the interface. "replace"
// swaps any previous qdisc in one step.
func (s *HostSystem) ApplyDelay(iface string, delayMs float64) error {
	return run("tc", "qdisc", "replace", "dev", iface, "root", "netem",
		"delay", fmt.Sprintf("%.3fms", delayMs))
}

func (s *HostSystem) SetDefaultRoute(via string) error {
	return run("ip", "route", "replace", "default", "via", via)
}

// WriteFRRFiles replaces the named config files and reloads the daemons.
func (s *HostSystem) WriteFRRFiles(files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(s.FRRDir, filepath.Base(name))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return run("/usr/lib/frr/frrinit.sh", "reload")
}

// EnforceIsolation rebuilds the FORWARD policy for ground/vessel nodes:
// traffic may only head toward the satellite network and the node's own
// uplink peers. Defence in depth next to the OSPF distribute-lists.
func (s *HostSystem) EnforceIsolation(satelliteSupernet string, allowedPeers []string) error {
	if err := run("iptables", "-F", "FORWARD"); err != nil {
		return err
	}
	for _, peer := range allowedPeers {
		if err := run("iptables", "-A", "FORWARD", "-d", peer, "-j", "ACCEPT"); err != nil {
			return err
		}
	}
	if satelliteSupernet != "" {
		if err := run("iptables", "-A", "FORWARD", "-d", satelliteSupernet, "-j", "ACCEPT"); err != nil {
			return err
		}
	}
	return run("iptables", "-P", "FORWARD", "DROP")
}

// Ping sends a single probe and returns the round-trip time in ms.
func (s *HostSystem) Ping(ip string) (float64, error) {
	out, err := exec.Command("ping", "-c", "1", "-W", "1", ip).Output()
	if err != nil {
		return 0, err
	}
	text := string(out)
	idx := strings.Index(text, "time=")
	if idx < 0 {
		return 0, nil
	}
	var latency float64
	fmt.Sscanf(text[idx:], "time=%f", &latency)
	return latency, nil
}

// DaemonAlive checks a routing daemon's pid file.
func (s *HostSystem) DaemonAlive(service string) bool {
	data, err := os.ReadFile("/var/run/frr/" + service + ".pid")
	if err != nil {
		return false
	}
	pid := strings.TrimSpace(string(data))
	if pid == "" {
		return false
	}
	_, err = os.Stat("/proc/" + pid)
	return err == nil
}

// Execute runs an already-validated diagnostic command.
func (s *HostSystem) Execute(ctx context.Context, argv []string) (string, string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
		err = nil
	}
	if err != nil {
		return stdout.String(), stderr.String(), -1, util.NewRPCError("local", "execute", err)
	}
	return stdout.String(), stderr.String(), code, nil
}
