package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// maxLookupBodySize limits the size of a lookup response
const maxLookupBodySize = 4 * 1024 * 1024

// lookupResponse is the JSON document returned by GET /lookup. Pointers are used to
// tell missing keys apart from zero values.
type lookupResponse struct {
	Data *struct {
		Producers *[]lookupProducer `json:"producers"`
	} `json:"data"`
}

type lookupProducer struct {
	BroadcastAddress *string `json:"broadcast_address"`
	TCPPort          *int    `json:"tcp_port"`
}

// HTTPDiscoverer queries lookup services over HTTP. Multiple lookup services are used
// round robin, a failed request is retried on the next one.
type HTTPDiscoverer struct {
	lookupURLs []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
	timeout    time.Duration
}

// NewHTTPDiscoverer creates a discoverer for the configured lookupd addresses. Addresses
// without scheme are treated as http.
func NewHTTPDiscoverer(config common.ClientConfig) (*HTTPDiscoverer, error) {
	if len(config.Discovery.LookupdAddrs) == 0 {
		return nil, fmt.Errorf("%w: no lookupd addresses", ErrDiscovery)
	}

	// Parse each lookupd URL
	parsedURLs := make([]*url.URL, len(config.Discovery.LookupdAddrs))
	for i, addr := range config.Discovery.LookupdAddrs {
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		parsedURL, err := url.Parse(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid lookupd address %q: %v", ErrDiscovery, addr, err)
		}
		parsedURLs[i] = parsedURL
	}

	// Create client with default transport
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     config.DiscoveryInterval() + config.Timeout(),
		},
	}

	return &HTTPDiscoverer{
		lookupURLs: parsedURLs,
		client:     client,
		retryCount: config.Discovery.RetryCount,
		timeout:    config.Timeout(),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see discovery.IDiscoverer)
// --------------------------------------------------------------------------

func (d *HTTPDiscoverer) Discover(ctx context.Context, topic string) ([]protocol.Endpoint, error) {
	attempts := d.retryCount
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		// Select the next lookupd via round-robin
		idx := atomic.AddUint32(&d.counter, 1) % uint32(len(d.lookupURLs))
		lookupURL := d.lookupURLs[idx]

		endpoints, err := d.lookup(ctx, lookupURL, topic)
		if err == nil {
			Logger.Debugf("Lookupd %s returned %d producers for topic %s", lookupURL.Host, len(endpoints), topic)
			return endpoints, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		Logger.Warningf("Lookup attempt %d/%d failed: %v", i+1, attempts, err)
	}
	return nil, lastErr
}

func (d *HTTPDiscoverer) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// lookup performs a single GET /lookup request
func (d *HTTPDiscoverer) lookup(ctx context.Context, lookupURL *url.URL, topic string) ([]protocol.Endpoint, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	// Create the complete URL
	requestURL := lookupURL.JoinPath("lookup")
	requestURL.RawQuery = url.Values{"topic": []string{topic}}.Encode()

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := d.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	// Check if the response status code is a success
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, fmt.Errorf("%w: lookupd %s returned %s", ErrDiscovery, lookupURL.Host, httpResponse.Status)
	}

	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxLookupBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrDiscovery, err)
	}
	return parseLookupResponse(body)
}

// parseLookupResponse validates the lookup document and extracts the producer endpoints
func parseLookupResponse(body []byte) ([]protocol.Endpoint, error) {
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid lookup response: %v", ErrDiscovery, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: lookup response has no data", ErrDiscovery)
	}
	if resp.Data.Producers == nil {
		return nil, fmt.Errorf("%w: lookup response has no producers", ErrDiscovery)
	}

	producers := *resp.Data.Producers
	endpoints := make([]protocol.Endpoint, 0, len(producers))
	for i, p := range producers {
		if p.BroadcastAddress == nil || p.TCPPort == nil {
			return nil, fmt.Errorf("%w: producer %d lacks broadcast_address or tcp_port", ErrDiscovery, i)
		}
		if strings.TrimSpace(*p.BroadcastAddress) == "" {
			return nil, fmt.Errorf("%w: producer %d has an empty broadcast_address", ErrDiscovery, i)
		}
		if *p.TCPPort <= 0 || *p.TCPPort > 65535 {
			return nil, fmt.Errorf("%w: producer %d has invalid tcp_port %d", ErrDiscovery, i, *p.TCPPort)
		}
		endpoints = append(endpoints, protocol.Endpoint{Host: *p.BroadcastAddress, Port: *p.TCPPort})
	}
	return normalize(endpoints), nil
}
