// Package rithmic is a client library for the Rithmic R|Protocol
// futures-trading backend: multi-plant connection management, per-plant
// message multiplexing, and request/response correlation over a set of
// secure WebSocket sessions. See the component packages (wire, transport,
// registry, plant, discovery, requests) for the pieces this façade wires
// together.
package rithmic

import (
	"github.com/rithmic-go/rithmic-client/requests"
)

// DefaultBootstrapURL is used when Credentials.DirectGatewayURL is unset
// and discovery must resolve a gateway from a system name.
const DefaultBootstrapURL = "wss://rituz00100.rithmic.com:443"

const (
	defaultAppName    = "rithmic-go-client"
	defaultAppVersion = "1.0.0"
)

// Credentials identifies the trader and the system to connect to, per
// spec.md §3.
type Credentials struct {
	User             string
	Password         string
	SystemName       string
	GatewayName      string
	DirectGatewayURL string
}

// AccountIdentity is the account-identity record populated during and
// after login (spec.md §3): written once, read-only thereafter.
type AccountIdentity = requests.AccountIdentity

// Config configures a Client. AppName/AppVersion default to this library's
// own identity if left blank; BootstrapURL defaults to DefaultBootstrapURL.
type Config struct {
	Credentials  Credentials
	BootstrapURL string
	AppName      string
	AppVersion   string
	Logger       Logger
}

func (c Config) withDefaults() Config {
	if c.BootstrapURL == "" {
		c.BootstrapURL = DefaultBootstrapURL
	}
	if c.AppName == "" {
		c.AppName = defaultAppName
	}
	if c.AppVersion == "" {
		c.AppVersion = defaultAppVersion
	}
	return c
}
