// Package env provides facts about the machine the tester runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine, protected
// by an app-specific hash so the raw ID never leaves the host.
func MachineID() string {
	id, err := machineid.ProtectedID("cantester")
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// ClientID returns an identifier of this tester for transports which
// require one, e.g. MQTT.
func ClientID(role string) string {
	id := MachineID()
	if len(id) > 12 {
		id = id[:12]
	}
	return role + ":" + id
}
