package base

import (
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientDialer defines the interface for transport-specific dial operations
type IClientDialer interface {
	// Dial establishes a single connection to the endpoint
	Dial(endpoint protocol.Endpoint, config common.ClientConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Connector
// -----------------------------------------------------------

// clientConnector implements transport.IConnector independent of the specific
// transport medium
type clientConnector struct {
	dialer IClientDialer
	config common.ClientConfig
}

// NewBaseConnector creates a connector that dials with the given dialer and wraps the
// resulting socket into a non-blocking Conn
func NewBaseConnector(dialer IClientDialer, config common.ClientConfig) transport.IConnector {
	return &clientConnector{
		dialer: dialer,
		config: config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return c.dialer.GetName()
}

func (c *clientConnector) Connect(endpoint protocol.Endpoint, router protocol.AckRouter) (transport.IConn, error) {
	// Connect to the endpoint
	conn, err := c.dialer.Dial(endpoint, c.config)
	if err != nil {
		return nil, &transport.ConnError{Endpoint: endpoint, Op: "connect", Err: err}
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.dialer.UpgradeConnection(conn, c.config); err != nil {
		_ = conn.Close()
		return nil, &transport.ConnError{Endpoint: endpoint, Op: "connect", Err: fmt.Errorf("failed to upgrade connection: %w", err)}
	}

	// Wrap into a non-blocking connection
	clientConn, err := NewConn(endpoint, conn, router, c.config.Transport.MaxFrameSize)
	if err != nil {
		_ = conn.Close()
		return nil, &transport.ConnError{Endpoint: endpoint, Op: "connect", Err: err}
	}

	Logger.Infof("Connected to %s using %s transport", endpoint, c.dialer.GetName())
	return clientConn, nil
}
