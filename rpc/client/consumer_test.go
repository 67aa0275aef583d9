package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/discovery"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/transport"
	gometrics "github.com/rcrowley/go-metrics"
	"reflect"
	"testing"
	"time"
)

func newTestConsumer(t *testing.T, disc *fakeDiscoverer, poller *fakePoller) (*Consumer, *fakeConnector) {
	t.Helper()
	conf := common.DefaultClientConfig()
	conf.Topic = "events"
	conf.Channel = "archive"
	conf.Transport.MaxInFlight = 10

	connector := newFakeConnector()
	consumer, err := NewConsumer(conf, disc, connector, poller)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}
	return consumer, connector
}

func TestNewConsumerValidatesConfig(t *testing.T) {
	conf := common.DefaultClientConfig()
	if _, err := NewConsumer(conf, &fakeDiscoverer{}, newFakeConnector(), &fakePoller{}); err == nil {
		t.Errorf("Expected error for missing topic")
	}
}

func TestConsumerDiscoverSubscribesNewConnections(t *testing.T) {
	disc := &fakeDiscoverer{endpoints: []protocol.Endpoint{epA}}
	consumer, connector := newTestConsumer(t, disc, &fakePoller{})

	if err := consumer.Discover(context.Background()); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{"SUB events archive", "RDY 10"}
	if got := connector.conns[epA].commands; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// existing connections are not subscribed again
	disc.endpoints = []protocol.Endpoint{epA, epB}
	if err := consumer.Discover(context.Background()); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if got := connector.conns[epA].commands; len(got) != 2 {
		t.Errorf("A must not be set up twice, got %v", got)
	}
	if got := connector.conns[epB].commands; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v for B, got %v", want, got)
	}
}

func TestConsumerDiscoveryErrorKeepsPool(t *testing.T) {
	disc := &fakeDiscoverer{endpoints: []protocol.Endpoint{epA}}
	consumer, _ := newTestConsumer(t, disc, &fakePoller{})
	if err := consumer.Discover(context.Background()); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	disc.err = discovery.ErrDiscovery
	if err := consumer.Discover(context.Background()); !errors.Is(err, discovery.ErrDiscovery) {
		t.Errorf("Expected ErrDiscovery, got %v", err)
	}
	if consumer.Pool().Len() != 1 {
		t.Errorf("Failed discovery must not change the pool")
	}
	if got := consumer.Stats().Get("discovery.errors").(gometrics.Counter).Count(); got != 1 {
		t.Errorf("Expected one discovery error, got %d", got)
	}
}

func TestConsumerPollReturnsMessages(t *testing.T) {
	disc := &fakeDiscoverer{endpoints: []protocol.Endpoint{epA}}
	consumer, connector := newTestConsumer(t, disc, &fakePoller{ready: allReadable})

	// first poll discovers and flushes the setup commands
	if _, err := consumer.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	conn := connector.conns[epA]
	if conn.flushed != 1 {
		t.Errorf("Setup commands must be flushed on the first poll")
	}

	var id protocol.MessageID
	copy(id[:], testID)
	msg := protocol.NewMessage(0, 1, id, []byte("hello"))
	conn.frames = []protocol.Frame{
		protocol.NewResponse([]byte("OK")),
		protocol.NewError("E_FIN_FAILED", "FIN failed"),
		msg,
	}

	messages, err := consumer.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(messages) != 1 || messages[0] != msg {
		t.Errorf("Expected only the message, got %v", messages)
	}
	if disc.calls != 1 {
		t.Errorf("Discovery must not run again within the interval, ran %d times", disc.calls)
	}

	stats := consumer.Stats()
	if got := stats.Get("messages").(gometrics.Counter).Count(); got != 1 {
		t.Errorf("Expected one message counted, got %d", got)
	}
	if got := stats.Get("frames.error").(gometrics.Counter).Count(); got != 1 {
		t.Errorf("Expected one error frame counted, got %d", got)
	}
	if got := stats.Get("pump.latency.us").(gometrics.Histogram).Count(); got != 2 {
		t.Errorf("Expected two pump samples, got %d", got)
	}
}

func TestConsumerPollRediscoversAfterInterval(t *testing.T) {
	disc := &fakeDiscoverer{endpoints: []protocol.Endpoint{epA}}
	consumer, _ := newTestConsumer(t, disc, &fakePoller{})

	for i := 0; i < 3; i++ {
		if _, err := consumer.Poll(context.Background()); err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
	}
	if disc.calls != 1 {
		t.Fatalf("Expected one discovery, got %d", disc.calls)
	}

	// pretend the interval elapsed, the producer moved from A to B
	consumer.lastDiscovery = time.Now().Add(-2 * time.Minute)
	disc.endpoints = []protocol.Endpoint{epB}
	if _, err := consumer.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if disc.calls != 2 {
		t.Errorf("Expected rediscovery, got %d calls", disc.calls)
	}
	if !reflect.DeepEqual(consumer.Pool().Endpoints(), []protocol.Endpoint{epB}) {
		t.Errorf("Pool must follow discovery, got %v", consumer.Pool().Endpoints())
	}
}

func TestConsumerPollSurvivesDiscoveryFailure(t *testing.T) {
	disc := &fakeDiscoverer{err: discovery.ErrDiscovery}
	poller := &fakePoller{}
	consumer, _ := newTestConsumer(t, disc, poller)

	messages, err := consumer.Poll(context.Background())
	if err != nil || len(messages) != 0 {
		t.Errorf("Expected empty poll, got %v (%v)", messages, err)
	}
	if poller.calls != 1 {
		t.Errorf("Pump must run even if discovery failed")
	}
}

func TestConsumerClose(t *testing.T) {
	disc := &fakeDiscoverer{endpoints: []protocol.Endpoint{epA, epB}}
	consumer, connector := newTestConsumer(t, disc, &fakePoller{})
	if err := consumer.Discover(context.Background()); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if err := consumer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !disc.closed || consumer.Pool().Len() != 0 {
		t.Errorf("Close must close discoverer and pool")
	}
	for _, conn := range connector.conns {
		if conn.closed != 1 {
			t.Errorf("Connection %s not closed", conn.endpoint)
		}
	}
}

var _ transport.IConn = (*fakeConn)(nil)
