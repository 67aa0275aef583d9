package client

import (
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"github.com/VictoriaMetrics/metrics"
)

// Process wide counters, exposed in Prometheus text format with metrics.WritePrometheus
var (
	metricConnectionsOpened  = metrics.NewCounter("nsqc_connections_opened_total")
	metricConnectionsClosed  = metrics.NewCounter("nsqc_connections_closed_total")
	metricConnectionFailures = metrics.NewCounter("nsqc_connection_failures_total")
	metricPumpPasses         = metrics.NewCounter("nsqc_pump_passes_total")
	metricPollErrors         = metrics.NewCounter("nsqc_poll_errors_total")
	metricDecodeErrors       = metrics.NewCounter("nsqc_decode_errors_total")
	metricDiscoveryRuns      = metrics.NewCounter("nsqc_discovery_runs_total")
	metricDiscoveryErrors    = metrics.NewCounter("nsqc_discovery_errors_total")

	metricFramesResponse = metrics.NewCounter(`nsqc_frames_total{type="response"}`)
	metricFramesError    = metrics.NewCounter(`nsqc_frames_total{type="error"}`)
	metricFramesMessage  = metrics.NewCounter(`nsqc_frames_total{type="message"}`)

	metricPumpDuration = metrics.NewSummary("nsqc_pump_duration_seconds")
)

// countFrames updates the per type frame counters
func countFrames(frames []protocol.Frame) {
	for _, f := range frames {
		switch f.Type() {
		case protocol.FrameTypeResponse:
			metricFramesResponse.Inc()
		case protocol.FrameTypeError:
			metricFramesError.Inc()
		case protocol.FrameTypeMessage:
			metricFramesMessage.Inc()
		}
	}
}
