package config

import (
	"github.com/JaimeStill/followup/internal/agent"
	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
	"github.com/JaimeStill/followup/pkg/auth"
	"github.com/JaimeStill/followup/pkg/database"
	"github.com/JaimeStill/followup/pkg/middleware"
	"github.com/JaimeStill/followup/pkg/openapi"
	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/storage"
)

var databaseEnv = &database.Env{
	Host:            "FOLLOWUP_DB_HOST",
	Port:            "FOLLOWUP_DB_PORT",
	Name:            "FOLLOWUP_DB_NAME",
	User:            "FOLLOWUP_DB_USER",
	Password:        "FOLLOWUP_DB_PASSWORD",
	SSLMode:         "FOLLOWUP_DB_SSL_MODE",
	MaxOpenConns:    "FOLLOWUP_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "FOLLOWUP_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "FOLLOWUP_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "FOLLOWUP_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Backend:          "FOLLOWUP_STORAGE_BACKEND",
	ContainerName:    "FOLLOWUP_STORAGE_CONTAINER_NAME",
	ConnectionString: "FOLLOWUP_STORAGE_CONNECTION_STRING",
	AccountURL:       "FOLLOWUP_STORAGE_ACCOUNT_URL",
}

var agentEnv = &agent.Env{
	Provider:    "FOLLOWUP_AGENT_PROVIDER",
	BaseURL:     "FOLLOWUP_AGENT_BASE_URL",
	Token:       "FOLLOWUP_AGENT_TOKEN",
	Model:       "FOLLOWUP_AGENT_MODEL",
	MaxTokens:   "FOLLOWUP_AGENT_MAX_TOKENS",
	Temperature: "FOLLOWUP_AGENT_TEMPERATURE",
	Timeout:     "FOLLOWUP_AGENT_TIMEOUT",
	Retries:     "FOLLOWUP_AGENT_RETRIES",
}

var routingEnv = &routing.Env{
	EscalationThreshold: "FOLLOWUP_ESCALATION_THRESHOLD",
	MaxRetries:          "FOLLOWUP_MAX_RETRIES",
	FollowUpInterval:    "FOLLOWUP_INTERVAL",
	RetryBackoff:        "FOLLOWUP_RETRY_BACKOFF",
	SafetyTerms:         "FOLLOWUP_SAFETY_TERMS",
}

var followupEnv = &followup.Env{
	MaxConcurrency:  "FOLLOWUP_MAX_CONCURRENCY",
	CallTimeout:     "FOLLOWUP_CALL_TIMEOUT",
	ClassifyTimeout: "FOLLOWUP_CLASSIFY_TIMEOUT",
	PersistTimeout:  "FOLLOWUP_PERSIST_TIMEOUT",
	RetryWaitCap:    "FOLLOWUP_RETRY_WAIT_CAP",
}

var transportEnv = &transport.Env{
	Provider:    "FOLLOWUP_TRANSPORT_PROVIDER",
	URL:         "FOLLOWUP_TRANSPORT_URL",
	Token:       "FOLLOWUP_TRANSPORT_TOKEN",
	Timeout:     "FOLLOWUP_TRANSPORT_TIMEOUT",
	FailureRate: "FOLLOWUP_TRANSPORT_FAILURE_RATE",
}

var directoryEnv = &directory.Env{
	URL:     "FOLLOWUP_DIRECTORY_URL",
	APIKey:  "FOLLOWUP_DIRECTORY_API_KEY",
	Timeout: "FOLLOWUP_DIRECTORY_TIMEOUT",
}

var auditEnv = &audit.Env{
	Sinks:        "FOLLOWUP_AUDIT_SINKS",
	Path:         "FOLLOWUP_AUDIT_PATH",
	MaxSize:      "FOLLOWUP_AUDIT_MAX_SIZE",
	Checksum:     "FOLLOWUP_AUDIT_CHECKSUM",
	FaultBuffer:  "FOLLOWUP_AUDIT_FAULT_BUFFER",
	WriteTimeout: "FOLLOWUP_AUDIT_WRITE_TIMEOUT",
}

var corsEnv = &middleware.CORSEnv{
	Origins:          "FOLLOWUP_CORS_ORIGINS",
	AllowedMethods:   "FOLLOWUP_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "FOLLOWUP_CORS_ALLOWED_HEADERS",
	AllowCredentials: "FOLLOWUP_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "FOLLOWUP_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "FOLLOWUP_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "FOLLOWUP_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "FOLLOWUP_OPENAPI_TITLE",
	Description: "FOLLOWUP_OPENAPI_DESCRIPTION",
}

var authEnv = &auth.Env{
	Issuer:   "FOLLOWUP_AUTH_ISSUER",
	ClientID: "FOLLOWUP_AUTH_CLIENT_ID",
}
