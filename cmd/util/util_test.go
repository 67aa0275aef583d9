package util

import (
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"reflect"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("short text") != "short text" {
		t.Errorf("Short text must not be wrapped")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:1, ,b:2,")
	if !reflect.DeepEqual(got, []string{"a:1", "b:2"}) {
		t.Errorf("Unexpected list: %v", got)
	}
	if splitList("") != nil {
		t.Errorf("Empty value must yield no entries")
	}
}

func TestGetClientConfigDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	SetupClientFlags(cmd)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if err := BindCommandFlags(cmd); err != nil {
		t.Fatalf("BindCommandFlags failed: %v", err)
	}

	want := common.DefaultClientConfig()
	want.Topic = "events"
	want.Channel = "archive"

	got := GetClientConfig("events", "archive")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flag defaults must match the default config\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestGetClientConfigFromFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	SetupClientFlags(cmd)
	if err := cmd.ParseFlags([]string{
		"--discovery-mode", "etcd",
		"--etcd-endpoints", "10.0.0.1:2379,10.0.0.2:2379",
		"--max-in-flight", "50",
		"--poll-timeout", "-1",
	}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if err := BindCommandFlags(cmd); err != nil {
		t.Fatalf("BindCommandFlags failed: %v", err)
	}

	got := GetClientConfig("events", "archive")
	if got.Discovery.Mode != common.DiscoveryModeEtcd {
		t.Errorf("Unexpected mode %s", got.Discovery.Mode)
	}
	if !reflect.DeepEqual(got.Discovery.EtcdEndpoints, []string{"10.0.0.1:2379", "10.0.0.2:2379"}) {
		t.Errorf("Unexpected etcd endpoints %v", got.Discovery.EtcdEndpoints)
	}
	if got.Transport.MaxInFlight != 50 || got.PollTimeout() >= 0 {
		t.Errorf("Unexpected transport config %+v", got.Transport)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Config must be valid: %v", err)
	}
}
