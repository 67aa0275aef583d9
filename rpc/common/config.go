package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type DiscoveryMode string

const (
	DiscoveryModeHTTP DiscoveryMode = "http"
	DiscoveryModeEtcd DiscoveryMode = "etcd"
)

// DiscoveryConfig controls how producers of a topic are found
type DiscoveryConfig struct {
	// Mode selects the discovery backend
	Mode DiscoveryMode
	// LookupdAddrs are the HTTP addresses of the lookup services (used round robin)
	LookupdAddrs []string
	// EtcdEndpoints are the etcd endpoints (etcd mode only)
	EtcdEndpoints []string
	// EtcdPrefix is the key prefix under which producers register (etcd mode only)
	EtcdPrefix string
	// RetryCount is how many times a discovery request is tried
	RetryCount int
	// IntervalSecond is the time between two discovery runs of a consumer
	IntervalSecond int
}

// SocketConf holds OS socket options
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ClientTransportConfig controls the producer connections
type ClientTransportConfig struct {
	SocketConf
	TCPConf

	// MaxInFlight is the RDY count announced on each connection
	MaxInFlight int
	// MaxFrameSize is the largest frame accepted from a producer (in bytes)
	MaxFrameSize int
	// PollTimeoutMs bounds the readiness wait of one pump pass, negative means wait forever
	PollTimeoutMs int
}

type ClientConfig struct {
	Topic   string
	Channel string

	// TimeoutSecond bounds connect and discovery requests
	TimeoutSecond int

	Discovery DiscoveryConfig
	Transport ClientTransportConfig

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a configuration with sensible defaults and no topic
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Channel:       "nsqc",
		TimeoutSecond: 5,
		Discovery: DiscoveryConfig{
			Mode:           DiscoveryModeHTTP,
			LookupdAddrs:   []string{"127.0.0.1:4161"},
			EtcdEndpoints:  []string{"127.0.0.1:2379"},
			EtcdPrefix:     "/nsqc/producers",
			RetryCount:     3,
			IntervalSecond: 60,
		},
		Transport: ClientTransportConfig{
			SocketConf: SocketConf{
				WriteBufferSize: 64 * 1024,
				ReadBufferSize:  64 * 1024,
			},
			TCPConf: TCPConf{
				TCPNoDelay:      true,
				TCPKeepAliveSec: 30,
				TCPLingerSec:    -1,
			},
			MaxInFlight:   1,
			MaxFrameSize:  1024 * 1024,
			PollTimeoutMs: 1000,
		},
		LogLevel: "info",
	}
}

// Timeout returns the connect / request timeout
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// PollTimeout returns the readiness wait bound, negative means block indefinitely
func (c *ClientConfig) PollTimeout() time.Duration {
	if c.Transport.PollTimeoutMs < 0 {
		return -1
	}
	return time.Duration(c.Transport.PollTimeoutMs) * time.Millisecond
}

// DiscoveryInterval returns the time between two discovery runs
func (c *ClientConfig) DiscoveryInterval() time.Duration {
	return time.Duration(c.Discovery.IntervalSecond) * time.Second
}

// Validate checks the configuration for values the client cannot work with
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("config: missing topic")
	}
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("config: missing channel")
	}
	switch c.Discovery.Mode {
	case DiscoveryModeHTTP:
		if len(c.Discovery.LookupdAddrs) == 0 {
			return fmt.Errorf("config: no lookupd addresses")
		}
	case DiscoveryModeEtcd:
		if len(c.Discovery.EtcdEndpoints) == 0 {
			return fmt.Errorf("config: no etcd endpoints")
		}
	default:
		return fmt.Errorf("config: invalid discovery mode %q", c.Discovery.Mode)
	}
	if c.Transport.MaxInFlight < 0 {
		return fmt.Errorf("config: max in flight must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Topic", c.Topic)
	addField("Channel", c.Channel)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Log Level", c.LogLevel)

	// Discovery
	addSection("Discovery")
	addField("Mode", string(c.Discovery.Mode))
	addField("Retry Count", strconv.Itoa(c.Discovery.RetryCount))
	addField("Interval", fmt.Sprintf("%d sec", c.Discovery.IntervalSecond))
	if c.Discovery.Mode == DiscoveryModeEtcd {
		addField("Etcd Prefix", c.Discovery.EtcdPrefix)
		for i, endpoint := range c.Discovery.EtcdEndpoints {
			addField("Etcd "+strconv.Itoa(i), endpoint)
		}
	} else {
		for i, addr := range c.Discovery.LookupdAddrs {
			addField("Lookupd "+strconv.Itoa(i), addr)
		}
	}

	// Transport
	addSection("Transport")
	addField("Max In Flight", strconv.Itoa(c.Transport.MaxInFlight))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.MaxFrameSize))
	if c.Transport.PollTimeoutMs < 0 {
		addField("Poll Timeout", "none (block)")
	} else {
		addField("Poll Timeout", fmt.Sprintf("%d ms", c.Transport.PollTimeoutMs))
	}
	addField("TCP No Delay", fmt.Sprintf("%t", c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	return sb.String()
}
