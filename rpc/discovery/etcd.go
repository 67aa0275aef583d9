package discovery

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"strings"
	"time"
)

// EtcdDiscoverer reads producers from etcd. Producers register one key per endpoint
// under <prefix>/<topic>/ with the value host:port.
type EtcdDiscoverer struct {
	client  *clientv3.Client // nil if constructed around a plain KV
	kv      clientv3.KV
	prefix  string
	timeout time.Duration
}

// NewEtcdDiscoverer connects to the configured etcd endpoints
func NewEtcdDiscoverer(config common.ClientConfig) (*EtcdDiscoverer, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Discovery.EtcdEndpoints,
		DialTimeout: config.Timeout(),
		Logger:      zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create etcd client: %v", ErrDiscovery, err)
	}

	d := newEtcdDiscoverer(client.KV, config.Discovery.EtcdPrefix, config.Timeout())
	d.client = client
	return d, nil
}

func newEtcdDiscoverer(kv clientv3.KV, prefix string, timeout time.Duration) *EtcdDiscoverer {
	return &EtcdDiscoverer{
		kv:      kv,
		prefix:  strings.TrimSuffix(prefix, "/"),
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see discovery.IDiscoverer)
// --------------------------------------------------------------------------

func (d *EtcdDiscoverer) Discover(ctx context.Context, topic string) ([]protocol.Endpoint, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	key := d.topicPrefix(topic)
	resp, err := d.kv.Get(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("%w: etcd get %s: %v", ErrDiscovery, key, err)
	}

	endpoints := make([]protocol.Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ep, err := parseProducerKV(kv)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}

	Logger.Debugf("Etcd returned %d producers for topic %s", len(endpoints), topic)
	return normalize(endpoints), nil
}

func (d *EtcdDiscoverer) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// topicPrefix returns the key prefix of all producers of a topic
func (d *EtcdDiscoverer) topicPrefix(topic string) string {
	return d.prefix + "/" + topic + "/"
}

// parseProducerKV parses the host:port value of a producer key
func parseProducerKV(kv *mvccpb.KeyValue) (protocol.Endpoint, error) {
	ep, err := protocol.ParseEndpoint(strings.TrimSpace(string(kv.Value)))
	if err != nil {
		return protocol.Endpoint{}, fmt.Errorf("%w: malformed producer %s: %v", ErrDiscovery, kv.Key, err)
	}
	return ep, nil
}
