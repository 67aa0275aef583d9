package tail

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/nsqc/cmd/util"
	"github.com/ValentinKolb/nsqc/rpc/client"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/ValentinKolb/nsqc/rpc/serializer"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	TailCmd = &cobra.Command{
		Use:   "tail [topic]",
		Short: "Consume a topic and print every message",
		Long: `Discover all producers of a topic, subscribe to them and print every received
message to stdout in the selected format. Messages are finished after printing. The
configuration can be set via command line flags or environment variables. The format of
the environment variables is NSQC_<flag> (e.g. NSQC_LOOKUPD_HTTP_ADDRESS=10.0.0.1:4161)`,
		Args:    cobra.ExactArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// add flags
	util.SetupClientFlags(TailCmd)

	key := "channel"
	TailCmd.Flags().String(key, "nsqc", util.WrapString("The channel to subscribe to"))

	key = "max-messages"
	TailCmd.Flags().Int(key, 0, util.WrapString("Exit after this many messages (0 runs until interrupted), remaining messages of the last batch are requeued"))

	key = "requeue"
	TailCmd.Flags().Bool(key, false, util.WrapString("Requeue messages instead of finishing them"))

	key = "format"
	TailCmd.Flags().String(key, "body", util.WrapString("Output format of the messages (body, text, json, binary)"))

	key = "metrics-addr"
	TailCmd.Flags().String(key, "", util.WrapString("Serve Prometheus metrics on this address (e.g. :9100), empty disables the endpoint"))
}

// processConfig binds the flags to viper
func processConfig(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

func run(cmd *cobra.Command, args []string) error {
	config := util.GetClientConfig(args[0], viper.GetString("channel"))
	util.Logger.Debugf("%s", config.String())

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	consumer, err := util.NewConsumer(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			util.Logger.Errorf("Failed to close consumer: %v", err)
		}
	}()

	// Serve metrics if configured
	if addr := viper.GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consume(ctx, consumer, s, cmd.OutOrStdout()); err != nil {
		return err
	}

	// Print the consumer statistics on exit
	gometrics.WriteOnce(consumer.Stats(), cmd.ErrOrStderr())
	return nil
}

// consume polls until the context is canceled or the message limit is reached
func consume(ctx context.Context, consumer *client.Consumer, s serializer.IMessageSerializer, out io.Writer) error {
	maxMessages := viper.GetInt("max-messages")
	requeue := viper.GetBool("requeue")

	if err := consumer.Discover(ctx); err != nil {
		// Not fatal, producers may appear on a later discovery run
		util.Logger.Warningf("Initial discovery failed: %v", err)
	}

	received := 0
	for ctx.Err() == nil {
		messages, err := consumer.Poll(ctx)
		if err != nil {
			util.Logger.Warningf("Dropped undecodable frames: %v", err)
		}

		for i, msg := range messages {
			if err := printMessage(out, s, msg); err != nil {
				return err
			}
			if err := acknowledge(msg, requeue); err != nil {
				util.Logger.Warningf("Failed to acknowledge message %s: %v", msg.ID, err)
			}

			received++
			if maxMessages > 0 && received >= maxMessages {
				// Hand the unprinted rest of the batch back to the producers
				requeueAll(messages[i+1:])
				flushPending(consumer)
				return nil
			}
		}
	}
	return nil
}

func printMessage(out io.Writer, s serializer.IMessageSerializer, msg *protocol.Message) error {
	data, err := s.Serialize(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message %s: %w", msg.ID, err)
	}
	_, err = out.Write(data)
	return err
}

func acknowledge(msg *protocol.Message, requeue bool) error {
	if requeue {
		return msg.Req(0)
	}
	return msg.Fin()
}

// requeueAll requeues messages without delay
func requeueAll(messages []*protocol.Message) {
	for _, msg := range messages {
		if err := msg.Req(0); err != nil {
			util.Logger.Warningf("Failed to requeue message %s: %v", msg.ID, err)
		}
	}
}

// flushPending pumps a few more passes so queued commands reach the producers
func flushPending(consumer *client.Consumer) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		pending := false
		for _, conn := range consumer.Pool().Connections() {
			if conn.HasPendingWrites() {
				pending = true
				break
			}
		}
		if !pending {
			return
		}
		if _, err := consumer.Poll(context.Background()); err != nil {
			util.Logger.Debugf("Dropped undecodable frames while flushing: %v", err)
		}
	}
}

// serveMetrics exposes the process metrics in Prometheus text format
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	util.Logger.Infof("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		util.Logger.Errorf("Metrics server failed: %v", err)
	}
}
