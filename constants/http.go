package constants

// Content Types
const (
	ContentTypeJSON           = "application/json"
	ContentTypeText           = "text/plain"
	ContentTypeTextVndMermaid = "text/vnd.mermaid"
	ContentTypeSVG            = "image/svg+xml"
	ContentTypePNG            = "image/png"
)

// HTTP Headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderAllowOrigin   = "Access-Control-Allow-Origin"
	HeaderAllowMethods  = "Access-Control-Allow-Methods"
	HeaderAllowHeaders  = "Access-Control-Allow-Headers"
	HeaderAllowCreds    = "Access-Control-Allow-Credentials"
)

// Routes
const (
	RouteParse   = "/parse"
	RouteLayout  = "/layout"
	RouteFlow    = "/flow"
	RouteDiagram = "/diagram"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Responses
const (
	HealthCheckResponse        = `{"status":"ok"}`
	ResponseInvalidRequestBody = "invalid request body"
	ResponseMethodNotAllowed   = "method not allowed"
	ResponseUnknownStrategy    = "unknown layout strategy"
	ResponseUnknownFormat      = "unknown diagram format"
)
