package constants

// ============================================================================
// CONFIGURATION
// ============================================================================

// Configuration Files
const (
	ConfigFileName = "scriptflow.config.json"
)

// Environment Variables
const (
	EnvDebug        = "SCRIPTFLOW_DEBUG"
	EnvPort         = "SCRIPTFLOW_PORT"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvOpenAIModel  = "OPENAI_MODEL"
	EnvParserDriver = "SCRIPTFLOW_PARSER"
)

// Parser Drivers
const (
	ParserDriverRules  = "rules"
	ParserDriverOpenAI = "openai"
)

// Event Drivers
const (
	EventDriverMemory = "memory"
	EventDriverNATS   = "nats"
)

// Blob Drivers
const (
	BlobDriverFilesystem = "filesystem"
	BlobDriverS3         = "s3"
)

// Tracing Exporters
const (
	TracingExporterNone   = "none"
	TracingExporterStdout = "stdout"
	TracingExporterOTLP   = "otlp"
)

// ============================================================================
// DEFAULTS
// ============================================================================

const (
	DefaultHost          = "localhost"
	DefaultPort          = 8000
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIURL     = "https://api.openai.com/v1/chat/completions"
	DefaultMaxTokens     = 600
	DefaultServiceName   = "scriptflow"
	DefaultBlobDir       = ".scriptflow/diagrams"
	DefaultParseEndpoint = "http://localhost:8000"
)

// ============================================================================
// EVENTS
// ============================================================================

const (
	TopicFlowParsed   = "flow.parsed"
	TopicSessionState = "session.state"
)

// ============================================================================
// CLI
// ============================================================================

const (
	CmdServe  = "serve"
	CmdParse  = "parse"
	CmdLayout = "layout"
	CmdGraph  = "graph"
	CmdDraw   = "draw"
	CmdMCP    = "mcp"

	DescServe  = "Start the script-to-flow HTTP service"
	DescParse  = "Parse a script into a flow graph"
	DescLayout = "Position a flow graph for display"
	DescGraph  = "Render a flow as a Mermaid, SVG or PNG diagram"
	DescDraw   = "Send a script to a running service and print the positioned flow"
	DescMCP    = "Model Context Protocol commands"
)

// JSONIndent is the indent used for human-facing JSON output.
const JSONIndent = "  "
