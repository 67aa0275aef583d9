package util

import (
	"context"
	"github.com/ValentinKolb/nsqc/rpc/client"
	"github.com/ValentinKolb/nsqc/rpc/common"
	"github.com/ValentinKolb/nsqc/rpc/discovery"
	"github.com/ValentinKolb/nsqc/rpc/serializer"
	"github.com/ValentinKolb/nsqc/rpc/transport/base"
	"github.com/ValentinKolb/nsqc/rpc/transport/tcp"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var Logger = logger.GetLogger("cli")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the discovery and connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "timeout"
	cmd.PersistentFlags().Int(key, defaults.TimeoutSecond, WrapString("The timeout in seconds for connecting to producers and for discovery requests"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "discovery-mode"
	cmd.PersistentFlags().String(key, string(defaults.Discovery.Mode), WrapString("How producers are discovered (http, etcd)"))

	key = "lookupd-http-address"
	cmd.PersistentFlags().String(key, strings.Join(defaults.Discovery.LookupdAddrs, ","), WrapString("The HTTP address of the lookup service. Multiple addresses can be specified as a comma-separated list and are used round robin"))

	key = "etcd-endpoints"
	cmd.PersistentFlags().String(key, strings.Join(defaults.Discovery.EtcdEndpoints, ","), WrapString("Comma-separated list of etcd endpoints (only for discovery mode etcd)"))

	key = "etcd-prefix"
	cmd.PersistentFlags().String(key, defaults.Discovery.EtcdPrefix, WrapString("Key prefix under which producers register in etcd (only for discovery mode etcd)"))

	key = "discovery-retries"
	cmd.PersistentFlags().Int(key, defaults.Discovery.RetryCount, WrapString("How many times to retry a discovery request"))

	key = "discovery-interval"
	cmd.PersistentFlags().Int(key, defaults.Discovery.IntervalSecond, WrapString("Seconds between two discovery runs"))

	key = "max-in-flight"
	cmd.PersistentFlags().Int(key, defaults.Transport.MaxInFlight, WrapString("Number of messages each producer may send before they are acknowledged"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, defaults.Transport.MaxFrameSize/1024, WrapString("The largest frame accepted from a producer (in KB)"))

	key = "poll-timeout"
	cmd.PersistentFlags().Int(key, defaults.Transport.PollTimeoutMs, WrapString("Milliseconds one pump pass waits for readiness, -1 waits forever"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, defaults.Transport.WriteBufferSize/1024, WrapString("The size of the socket write buffer (in KB)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, defaults.Transport.ReadBufferSize/1024, WrapString("The size of the socket read buffer (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, defaults.Transport.TCPNoDelay, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, defaults.Transport.TCPKeepAliveSec, WrapString("The keepalive interval (in seconds, 0 disables keepalive)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, defaults.Transport.TCPLingerSec, WrapString("The linger time (in seconds, negative keeps the OS default)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("nsqc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig(topic, channel string) common.ClientConfig {
	return common.ClientConfig{
		Topic:         topic,
		Channel:       channel,
		TimeoutSecond: viper.GetInt("timeout"),
		LogLevel:      viper.GetString("log-level"),
		Discovery: common.DiscoveryConfig{
			Mode:           common.DiscoveryMode(viper.GetString("discovery-mode")),
			LookupdAddrs:   splitList(viper.GetString("lookupd-http-address")),
			EtcdEndpoints:  splitList(viper.GetString("etcd-endpoints")),
			EtcdPrefix:     viper.GetString("etcd-prefix"),
			RetryCount:     viper.GetInt("discovery-retries"),
			IntervalSecond: viper.GetInt("discovery-interval"),
		},
		Transport: common.ClientTransportConfig{
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			},
			MaxInFlight:   viper.GetInt("max-in-flight"),
			MaxFrameSize:  viper.GetInt("max-frame-size") * 1024,
			PollTimeoutMs: viper.GetInt("poll-timeout"),
		},
	}
}

// GetSerializer creates the output serializer based on configuration
func GetSerializer() (serializer.IMessageSerializer, error) {
	return serializer.New(viper.GetString("format"))
}

// NewConsumer creates a consumer with the configured discoverer, TCP connections and the
// poll(2) based poller
func NewConsumer(config common.ClientConfig) (*client.Consumer, error) {
	disc, err := discovery.New(config)
	if err != nil {
		return nil, err
	}

	consumer, err := client.NewConsumer(config, disc, tcp.NewTCPConnector(config), base.NewPoller())
	if err != nil {
		_ = disc.Close()
		return nil, err
	}
	return consumer, nil
}

// Discover runs a single discovery for the topic of the configuration
func Discover(ctx context.Context, config common.ClientConfig) ([]string, error) {
	disc, err := discovery.New(config)
	if err != nil {
		return nil, err
	}
	defer disc.Close()

	endpoints, err := disc.Discover(ctx, config.Topic)
	if err != nil {
		return nil, err
	}

	result := make([]string, len(endpoints))
	for i, ep := range endpoints {
		result[i] = ep.String()
	}
	return result, nil
}

// splitList splits a comma-separated list and drops empty entries
func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
