package telemetry

// Span and attribute names used for instrumentation.
const (
	// Spans
	SpanAPIRequest  = "api.request"
	SpanWildfireRun = "wildfire.run"
	SpanArtifact    = "artifact.write"

	// Attributes
	AttrAPI          = "data512.api"
	AttrURL          = "url.full"
	AttrStatusCode   = "http.response.status_code"
	AttrCacheHit     = "data512.cache_hit"
	AttrFeatureCount = "data512.features"
	AttrIncluded     = "data512.features_included"
	AttrArtifactPath = "data512.artifact_path"
	AttrRecordCount  = "data512.records"
)
