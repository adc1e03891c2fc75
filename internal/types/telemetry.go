package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency        = "APILatency"
	MetricAPIRequestCount   = "APIRequestCount"
	MetricForecastLoad      = "ForecastLoad"
	MetricAdvisoryPublished = "AdvisoryPublished"

	// Dimension Keys
	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
	DimResult   = "Result"
	DimRule     = "AlertRule"
	DimLevel    = "Level"

	// Metric Namespace
	MetricNamespace = "SunPump"
)
