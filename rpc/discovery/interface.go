package discovery

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/lni/dragonboat/v4/logger"
	"sort"
)

var Logger = logger.GetLogger("discovery")

// ErrDiscovery is wrapped by every error returned from a discoverer
var ErrDiscovery = errors.New("discovery: failed")

// IDiscoverer finds the producers of a topic
type IDiscoverer interface {
	// Discover returns the de-duplicated, sorted producer endpoints of the topic.
	// All errors wrap ErrDiscovery.
	Discover(ctx context.Context, topic string) ([]protocol.Endpoint, error)

	// Close releases all resources of the discoverer
	Close() error
}

// New creates the discoverer selected by the configured discovery mode
func New(config common.ClientConfig) (IDiscoverer, error) {
	switch config.Discovery.Mode {
	case common.DiscoveryModeHTTP:
		return NewHTTPDiscoverer(config)
	case common.DiscoveryModeEtcd:
		return NewEtcdDiscoverer(config)
	default:
		return nil, fmt.Errorf("%w: unknown discovery mode %q", ErrDiscovery, config.Discovery.Mode)
	}
}

// normalize removes duplicate endpoints and sorts by host and port
func normalize(endpoints []protocol.Endpoint) []protocol.Endpoint {
	seen := make(map[protocol.Endpoint]struct{}, len(endpoints))
	result := make([]protocol.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		result = append(result, ep)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}
