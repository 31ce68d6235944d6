package telemetry

// Span and attribute names used for instrumentation.
const (
	// Realtime plane
	SpanApplyAvailability = "availability.apply"

	AttrMarkerID      = "marker.id"
	AttrMarkerKind    = "marker.kind"
	AttrReportLatency = "realtime.report_latency_seconds"
)
