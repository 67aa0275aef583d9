package discovery

import (
	"context"
	"errors"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
)

// newLookupd starts a lookup service answering every request with status and body
func newLookupd(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/lookup" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("topic") != "events & more" {
			http.Error(w, "wrong topic", http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHTTPDiscoverer(t *testing.T, addrs ...string) *HTTPDiscoverer {
	t.Helper()
	conf := common.DefaultClientConfig()
	conf.Discovery.LookupdAddrs = addrs
	conf.Discovery.RetryCount = 2
	d, err := NewHTTPDiscoverer(conf)
	if err != nil {
		t.Fatalf("NewHTTPDiscoverer failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestHTTPDiscoverer(t *testing.T) {
	body := `{"status_code":200,"data":{"producers":[
		{"broadcast_address":"10.0.0.2","tcp_port":4150},
		{"broadcast_address":"10.0.0.1","tcp_port":4151},
		{"broadcast_address":"10.0.0.1","tcp_port":4150},
		{"broadcast_address":"10.0.0.2","tcp_port":4150}
	]}}`
	srv := newLookupd(t, http.StatusOK, body, nil)

	d := newTestHTTPDiscoverer(t, srv.URL)
	endpoints, err := d.Discover(context.Background(), "events & more")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []protocol.Endpoint{
		{Host: "10.0.0.1", Port: 4150},
		{Host: "10.0.0.1", Port: 4151},
		{Host: "10.0.0.2", Port: 4150},
	}
	if !reflect.DeepEqual(endpoints, want) {
		t.Errorf("Expected %v, got %v", want, endpoints)
	}
}

func TestHTTPDiscovererEmptyProducers(t *testing.T) {
	srv := newLookupd(t, http.StatusOK, `{"data":{"producers":[]}}`, nil)

	d := newTestHTTPDiscoverer(t, srv.URL)
	endpoints, err := d.Discover(context.Background(), "events & more")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(endpoints) != 0 {
		t.Errorf("Expected no producers, got %v", endpoints)
	}
}

func TestHTTPDiscovererMalformed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"missing data", http.StatusOK, `{"producers":[]}`},
		{"null data", http.StatusOK, `{"data":null}`},
		{"missing producers", http.StatusOK, `{"data":{}}`},
		{"producers not an array", http.StatusOK, `{"data":{"producers":"10.0.0.1"}}`},
		{"missing address", http.StatusOK, `{"data":{"producers":[{"tcp_port":4150}]}}`},
		{"empty address", http.StatusOK, `{"data":{"producers":[{"broadcast_address":"","tcp_port":4150}]}}`},
		{"blank address", http.StatusOK, `{"data":{"producers":[{"broadcast_address":"  ","tcp_port":4150}]}}`},
		{"missing port", http.StatusOK, `{"data":{"producers":[{"broadcast_address":"a"}]}}`},
		{"invalid port", http.StatusOK, `{"data":{"producers":[{"broadcast_address":"a","tcp_port":70000}]}}`},
		{"invalid json", http.StatusOK, `{"data":`},
		{"server error", http.StatusInternalServerError, `{"data":{"producers":[]}}`},
		{"not found", http.StatusNotFound, `{"message":"TOPIC_NOT_FOUND"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newLookupd(t, tt.status, tt.body, nil)
			d := newTestHTTPDiscoverer(t, srv.URL)

			endpoints, err := d.Discover(context.Background(), "events & more")
			if !errors.Is(err, ErrDiscovery) {
				t.Fatalf("Expected ErrDiscovery, got %v", err)
			}
			if endpoints != nil {
				t.Errorf("Expected no endpoints on error, got %v", endpoints)
			}
		})
	}
}

func TestHTTPDiscovererRetriesRoundRobin(t *testing.T) {
	var badHits, goodHits int32
	bad := newLookupd(t, http.StatusServiceUnavailable, "", &badHits)
	good := newLookupd(t, http.StatusOK, `{"data":{"producers":[{"broadcast_address":"h","tcp_port":1}]}}`, &goodHits)

	d := newTestHTTPDiscoverer(t, bad.URL, good.URL)

	for i := 0; i < 4; i++ {
		endpoints, err := d.Discover(context.Background(), "events & more")
		if err != nil {
			t.Fatalf("Discover %d failed: %v", i, err)
		}
		if len(endpoints) != 1 {
			t.Fatalf("Expected one producer, got %v", endpoints)
		}
	}
	if atomic.LoadInt32(&goodHits) != 4 {
		t.Errorf("Expected 4 successful lookups, got %d", goodHits)
	}
	if atomic.LoadInt32(&badHits) == 0 {
		t.Errorf("Expected the failing lookupd to be tried as well")
	}
}

func TestHTTPDiscovererTransportError(t *testing.T) {
	srv := newLookupd(t, http.StatusOK, "", nil)
	addr := srv.URL
	srv.Close()

	d := newTestHTTPDiscoverer(t, addr)
	if _, err := d.Discover(context.Background(), "events & more"); !errors.Is(err, ErrDiscovery) {
		t.Errorf("Expected ErrDiscovery, got %v", err)
	}
}

func TestHTTPDiscovererCanceledContext(t *testing.T) {
	srv := newLookupd(t, http.StatusOK, `{"data":{"producers":[]}}`, nil)
	d := newTestHTTPDiscoverer(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Discover(ctx, "events & more"); !errors.Is(err, ErrDiscovery) {
		t.Errorf("Expected ErrDiscovery, got %v", err)
	}
}

func TestNewHTTPDiscovererAddsScheme(t *testing.T) {
	d := newTestHTTPDiscoverer(t, "127.0.0.1:4161", "https://lookupd.example:4161")
	if d.lookupURLs[0].Scheme != "http" || d.lookupURLs[0].Host != "127.0.0.1:4161" {
		t.Errorf("Unexpected URL: %s", d.lookupURLs[0])
	}
	if d.lookupURLs[1].Scheme != "https" {
		t.Errorf("Scheme must be kept: %s", d.lookupURLs[1])
	}
}

func TestNewDiscovererMode(t *testing.T) {
	conf := common.DefaultClientConfig()
	conf.Discovery.Mode = "dns"
	if _, err := New(conf); !errors.Is(err, ErrDiscovery) {
		t.Errorf("Expected ErrDiscovery for unknown mode, got %v", err)
	}

	conf.Discovery.Mode = common.DiscoveryModeHTTP
	d, err := New(conf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := d.(*HTTPDiscoverer); !ok {
		t.Errorf("Expected HTTPDiscoverer, got %T", d)
	}
}
