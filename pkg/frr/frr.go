// Package frr renders FRRouting configuration for emulated nodes: an OSPF
// daemon config per node, plus the daemons and vtysh boilerplate.
//
// Satellites share the backbone area. Every ground station and vessel gets a
// stable non-zero per-node area and a distribute-list that only lets routes
// within the satellite loopback supernet out, which forces ground-to-ground
// traffic through the satellite backbone.
package frr

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"text/template"
)

// BackboneArea is the OSPF area shared by all satellites.
const BackboneArea = "0.0.0.0"

// Config file names delivered to an agent's /config/frr endpoint.
const (
	FileOSPF    = "frr.conf"
	FileDaemons = "daemons"
	FileVtysh   = "vtysh.conf"
)

// Network is one OSPF network statement.
type Network struct {
	Prefix string
	Area   string
}

// RouterData is everything needed to render one node's FRR configuration.
type RouterData struct {
	Name     string
	RouterID string
	Networks []Network

	// Filtered enables the ground/vessel distribute-list restricted to
	// LoopbackSupernet.
	Filtered         bool
	LoopbackSupernet string
}

var ospfTemplate = template.Must(template.New(FileOSPF).Parse(`hostname {{.Name}}
frr defaults datacenter
log syslog informational
ip forwarding
no ipv6 forwarding
service integrated-vtysh-config
!
router ospf
 ospf router-id {{.RouterID}}
 redistribute static
{{- range .Networks}}
 network {{.Prefix}} area {{.Area}}
{{- end}}
{{- if .Filtered}}
 distribute-list SATELLITE_ONLY out
{{- end}}
exit
!
{{- if .Filtered}}
ip prefix-list SATELLITE_ONLY permit {{.LoopbackSupernet}} le 32
!
{{- end}}
`))

const daemonsConfig = `ospfd=yes
vtysh_enable=yes
zebra_options="  -A 127.0.0.1 -s 90000000"
mgmtd_options="  -A 127.0.0.1"
ospfd_options="  -A 127.0.0.1"
`

// Area returns the OSPF area for a node. Satellites share the backbone;
// ground stations and vessels each get a deterministic per-node area so the
// assignment survives controller restarts.
func Area(name string, satellite bool) string {
	if satellite {
		return BackboneArea
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("0.0.0.%d", h.Sum32()%254+1)
}

// Render produces the full config file set for one node.
func Render(data RouterData) (map[string]string, error) {
	var buf bytes.Buffer
	if err := ospfTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering ospf config for %s: %w", data.Name, err)
	}
	return map[string]string{
		FileOSPF:    buf.String(),
		FileDaemons: daemonsConfig,
		FileVtysh:   vtyshConfig(data.Name),
	}, nil
}

func vtyshConfig(name string) string {
	var b strings.Builder
	b.WriteString("service integrated-vtysh-config\n")
	b.WriteString("hostname " + name + "\n")
	return b.String()
}
