// Package config loads toolbox settings from the environment and exposes
// them as a flat, dotted key-value store.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the process configuration. List values are separated by ';'.
type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Files     FilesConfig
	Tools     ToolsConfig
	Resources ResourcesConfig
	Prompts   PromptsConfig
	Boost     BoostConfig
}

// ServerConfig describes the advertised server.
type ServerConfig struct {
	Name         string `env:"MCP_SERVER_NAME,default=mcp-toolbox"`
	Version      string `env:"MCP_SERVER_VERSION,default=1.0.0"`
	Instructions string `env:"MCP_SERVER_INSTRUCTIONS"`
}

// TransportConfig selects and tunes the transport.
type TransportConfig struct {
	// Kind is one of stdio, http, websocket or sdk-stdio.
	Kind            string        `env:"MCP_TRANSPORT,default=stdio"`
	Addr            string        `env:"MCP_ADDR,default=:8080"`
	RequestTimeout  time.Duration `env:"MCP_REQUEST_TIMEOUT,default=30s"`
	MaxRequestBytes int64         `env:"MCP_MAX_REQUEST_BYTES,default=1048576"`
	RateLimit       int           `env:"MCP_RATE_LIMIT,default=0"`
	RateBurst       int           `env:"MCP_RATE_BURST,default=10"`
	JWTSecret       string        `env:"MCP_JWT_SECRET"`
	JWKSURL         string        `env:"MCP_JWKS_URL"`
	JWTIssuer       string        `env:"MCP_JWT_ISSUER"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `env:"MCP_LOG_LEVEL,default=info"`
	// File additionally receives log output and backs the app://logs resource.
	File string `env:"MCP_LOG_FILE"`
}

// DatabaseConfig configures the SQL backend.
type DatabaseConfig struct {
	Driver string `env:"MCP_DB_DRIVER,default=sqlite"`
	DSN    string `env:"MCP_DB_DSN,default=file:toolbox.db"`
}

// RedisConfig switches cache and queue to Redis when Addr is set.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB,default=0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX,default=mcp-toolbox:"`
}

// QueueConfig lists the job names the in-memory queue accepts. Each is
// logged when processed.
type QueueConfig struct {
	Jobs []string `env:"MCP_QUEUE_JOBS"`
}

// FilesConfig roots the file backend.
type FilesConfig struct {
	Root string `env:"MCP_FILES_ROOT,default=."`
}

// ToolsConfig gates the built-in tools.
type ToolsConfig struct {
	Enabled         bool          `env:"MCP_TOOLS_ENABLED,default=true"`
	DatabaseQuery   bool          `env:"MCP_TOOL_DATABASE_QUERY,default=true"`
	MaxQueryTime    time.Duration `env:"MCP_MAX_QUERY_TIME,default=30s"`
	ModelOperation  bool          `env:"MCP_TOOL_MODEL_OPERATION,default=true"`
	AllowedModels   []string      `env:"MCP_TOOL_MODEL_OPERATION_ALLOWED_MODELS"`
	Command         bool          `env:"MCP_TOOL_COMMAND,default=true"`
	AllowedCommands []string      `env:"MCP_TOOL_COMMAND_ALLOWED_COMMANDS"`
	CacheOperation  bool          `env:"MCP_TOOL_CACHE_OPERATION,default=true"`
	QueueJob        bool          `env:"MCP_TOOL_QUEUE_JOB,default=true"`
	FileOperation   bool          `env:"MCP_TOOL_FILE_OPERATION,default=true"`
	AllowedPaths    []string      `env:"MCP_TOOL_FILE_OPERATION_ALLOWED_PATHS"`
}

// ResourcesConfig gates the built-in resources.
type ResourcesConfig struct {
	Enabled     bool `env:"MCP_RESOURCES_ENABLED,default=true"`
	ModelSchema bool `env:"MCP_RESOURCE_MODEL_SCHEMA,default=true"`
	RouteList   bool `env:"MCP_RESOURCE_ROUTE_LIST,default=true"`
	Config      bool `env:"MCP_RESOURCE_CONFIG,default=true"`
	Log         bool `env:"MCP_RESOURCE_LOG,default=true"`
	LogMaxLines int  `env:"MCP_LOG_MAX_LINES,default=100"`
}

// PromptsConfig gates the built-in prompts.
type PromptsConfig struct {
	Enabled        bool `env:"MCP_PROMPTS_ENABLED,default=true"`
	CodeGeneration bool `env:"MCP_PROMPT_CODE_GENERATION,default=true"`
	Debugging      bool `env:"MCP_PROMPT_DEBUGGING,default=true"`
	DatabaseDesign bool `env:"MCP_PROMPT_DATABASE_DESIGN,default=true"`
}

// BoostConfig controls project guideline injection into prompts.
type BoostConfig struct {
	Enabled        bool   `env:"MCP_BOOST_ENABLED,default=false"`
	GuidelinesPath string `env:"MCP_BOOST_GUIDELINES_PATH,default=.boost/guidelines"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	return &cfg, nil
}

// Store flattens cfg into dotted keys such as
// "tools.database_query.enabled".
func (c *Config) Store() *Store {
	return NewStore(map[string]any{
		"server.name":         c.Server.Name,
		"server.version":      c.Server.Version,
		"server.instructions": c.Server.Instructions,

		"transport.kind":              c.Transport.Kind,
		"transport.addr":              c.Transport.Addr,
		"transport.request_timeout":   c.Transport.RequestTimeout,
		"transport.max_request_bytes": c.Transport.MaxRequestBytes,
		"transport.rate_limit":        c.Transport.RateLimit,
		"transport.jwt_secret":        c.Transport.JWTSecret,
		"transport.jwks_url":          c.Transport.JWKSURL,

		"log.level": c.Log.Level,
		"log.file":  c.Log.File,

		"database.driver": c.Database.Driver,
		"database.dsn":    c.Database.DSN,

		"redis.addr":       c.Redis.Addr,
		"redis.password":   c.Redis.Password,
		"redis.key_prefix": c.Redis.KeyPrefix,

		"queue.jobs": c.Queue.Jobs,

		"files.root": c.Files.Root,

		"tools.enabled":                        c.Tools.Enabled,
		"tools.database_query.enabled":         c.Tools.DatabaseQuery,
		"tools.database_query.max_query_time":  c.Tools.MaxQueryTime,
		"tools.model_operation.enabled":        c.Tools.ModelOperation,
		"tools.model_operation.allowed_models": c.Tools.AllowedModels,
		"tools.command.enabled":                c.Tools.Command,
		"tools.command.allowed_commands":       c.Tools.AllowedCommands,
		"tools.cache_operation.enabled":        c.Tools.CacheOperation,
		"tools.queue_job.enabled":              c.Tools.QueueJob,
		"tools.file_operation.enabled":         c.Tools.FileOperation,
		"tools.file_operation.allowed_paths":   c.Tools.AllowedPaths,

		"resources.enabled":              c.Resources.Enabled,
		"resources.model_schema.enabled": c.Resources.ModelSchema,
		"resources.route_list.enabled":   c.Resources.RouteList,
		"resources.config.enabled":       c.Resources.Config,
		"resources.log.enabled":          c.Resources.Log,
		"resources.log.max_lines":        c.Resources.LogMaxLines,

		"prompts.enabled":                 c.Prompts.Enabled,
		"prompts.code_generation.enabled": c.Prompts.CodeGeneration,
		"prompts.debugging.enabled":       c.Prompts.Debugging,
		"prompts.database_design.enabled": c.Prompts.DatabaseDesign,

		"boost.enabled":         c.Boost.Enabled,
		"boost.guidelines_path": c.Boost.GuidelinesPath,
	})
}
