package util

import (
	"testing"
)

func TestParseIPWithMask(t *testing.T) {
	tests := []struct {
		name     string
		cidr     string
		wantIP   string
		wantMask int
		wantErr  bool
	}{
		{
			name:     "valid /30",
			cidr:     "10.1.1.1/30",
			wantIP:   "10.1.1.1",
			wantMask: 30,
			wantErr:  false,
		},
		{
			name:     "valid /32 loopback",
			cidr:     "10.0.0.1/32",
			wantIP:   "10.0.0.1",
			wantMask: 32,
			wantErr:  false,
		},
		{
			name:    "invalid - no mask",
			cidr:    "192.168.1.100",
			wantErr: true,
		},
		{
			name:    "invalid - bad IP",
			cidr:    "999.999.999.999/24",
			wantErr: true,
		},
		{
			name:    "invalid - empty",
			cidr:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, mask, err := ParseIPWithMask(tt.cidr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseIPWithMask() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if ip.String() != tt.wantIP {
					t.Errorf("ParseIPWithMask() IP = %v, want %v", ip.String(), tt.wantIP)
				}
				if mask != tt.wantMask {
					t.Errorf("ParseIPWithMask() mask = %v, want %v", mask, tt.wantMask)
				}
			}
		})
	}
}

func TestComputeNeighborIP(t *testing.T) {
	tests := []struct {
		name    string
		localIP string
		maskLen int
		want    string
	}{
		{"first host of /30", "10.15.0.1", 30, "10.15.0.2"},
		{"second host of /30", "10.15.0.2", 30, "10.15.0.1"},
		{"network address of /30", "10.15.0.0", 30, ""},
		{"broadcast of /30", "10.15.0.3", 30, ""},
		{"even /31", "10.15.0.0", 31, "10.15.0.1"},
		{"odd /31", "10.15.0.1", 31, "10.15.0.0"},
		{"not point-to-point", "10.15.0.1", 24, ""},
		{"bad ip", "not-an-ip", 30, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeNeighborIP(tt.localIP, tt.maskLen); got != tt.want {
				t.Errorf("ComputeNeighborIP(%s, %d) = %q, want %q", tt.localIP, tt.maskLen, got, tt.want)
			}
		})
	}
}

func TestSubnetContains(t *testing.T) {
	tests := []struct {
		name     string
		supernet string
		ip       string
		want     bool
	}{
		{"loopback in supernet", "10.0.0.0/16", "10.0.0.5", true},
		{"link ip outside loopback supernet", "10.0.0.0/16", "10.1.0.5", false},
		{"bad supernet", "10.0.0.0", "10.0.0.5", false},
		{"bad ip", "10.0.0.0/16", "nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubnetContains(tt.supernet, tt.ip); got != tt.want {
				t.Errorf("SubnetContains(%s, %s) = %v, want %v", tt.supernet, tt.ip, got, tt.want)
			}
		})
	}
}
