package nsqdtest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var Logger = logger.GetLogger("nsqdtest")

// Broker is a minimal in-process producer. It accepts client connections, checks the
// protocol magic, records every received command line and sends frames on request.
type Broker struct {
	listener net.Listener
	commands chan string
	joined   chan struct{}

	mu      sync.Mutex
	clients []net.Conn
	closed  bool

	wg sync.WaitGroup
}

// NewBroker starts a broker on a random loopback port
func NewBroker() (*Broker, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %v", err)
	}

	b := &Broker{
		listener: listener,
		commands: make(chan string, 1024),
		joined:   make(chan struct{}, 64),
	}

	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// Endpoint returns the address the broker listens on
func (b *Broker) Endpoint() protocol.Endpoint {
	addr := b.listener.Addr().(*net.TCPAddr)
	return protocol.Endpoint{Host: addr.IP.String(), Port: addr.Port}
}

// Commands returns the received command lines without the trailing newline
func (b *Broker) Commands() <-chan string {
	return b.commands
}

// WaitForClient blocks until a client sent the protocol magic
func (b *Broker) WaitForClient(timeout time.Duration) error {
	select {
	case <-b.joined:
		return nil
	case <-time.After(timeout):
		return errors.New("nsqdtest: no client connected")
	}
}

// WaitForCommand blocks until a command with the given prefix was received and returns it.
// Other commands received in the meantime are discarded.
func (b *Broker) WaitForCommand(prefix string, timeout time.Duration) (string, error) {
	deadline := time.After(timeout)
	for {
		select {
		case cmd := <-b.commands:
			if strings.HasPrefix(cmd, prefix) {
				return cmd, nil
			}
		case <-deadline:
			return "", fmt.Errorf("nsqdtest: no %q command received", prefix)
		}
	}
}

// Send writes a frame to all connected clients
func (b *Broker) Send(f protocol.Frame) error {
	return b.SendRaw(protocol.AppendFramed(nil, f))
}

// SendRaw writes raw bytes to all connected clients
func (b *Broker) SendRaw(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) == 0 {
		return errors.New("nsqdtest: no connected clients")
	}
	for _, conn := range b.clients {
		if _, err := conn.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectClients closes all client connections, the broker keeps listening
func (b *Broker) DisconnectClients() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, conn := range b.clients {
		_ = conn.Close()
	}
	b.clients = nil
}

// Close stops the broker and closes all client connections
func (b *Broker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	err := b.listener.Close()
	b.DisconnectClients()
	b.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (b *Broker) acceptLoop() {
	defer b.wg.Done()

	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			_ = conn.Close()
			return
		}
		b.clients = append(b.clients, conn)
		b.mu.Unlock()

		b.wg.Add(1)
		go b.handleConnection(conn)
	}
}

// handleConnection reads the protocol magic followed by newline terminated commands
func (b *Broker) handleConnection(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)

	magic := make([]byte, len(protocol.MagicV2))
	if _, err := io.ReadFull(reader, magic); err != nil {
		Logger.Debugf("Client left before sending magic: %v", err)
		return
	}
	if !bytes.Equal(magic, protocol.MagicV2) {
		Logger.Errorf("Invalid protocol magic %q", magic)
		return
	}
	b.joined <- struct{}{}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Case EOF or closed: connection closed by either side
			Logger.Debugf("Connection closed: %v", err)
			return
		}

		select {
		case b.commands <- strings.TrimSuffix(line, "\n"):
		default:
			Logger.Warningf("Command buffer full, dropping %q", line)
		}
	}
}
