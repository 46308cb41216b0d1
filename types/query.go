package types

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// ChatParams is the body of POST /api/v1/chat.
type ChatParams struct {
	Message string             `json:"message" validate:"required"`
	History []ConversationTurn `json:"history"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatParams) Validate() map[string]string {
	return validateStruct(params)
}

// Config carries everything the service needs before it can serve traffic.
// The validate-tagged fields are the external collaborator credentials; their
// absence is a configuration error, not a request error.
type Config struct {
	ServerAddr string

	OpenAIKey     string `validate:"required"`
	OpenAIBaseURL string
	EmbedModel    string
	ChatModel     string

	VectorDBURL string `validate:"required"`
	VectorIndex string `validate:"required"`
	VectorDim   int

	ChunkSize    int
	ChunkOverlap int
}

// LoadConfig reads the environment into a Config. Validation is left to the
// caller so it can surface a ConfigurationMissing fault eagerly.
func LoadConfig() Config {
	return Config{
		ServerAddr:    envOr("SERVER_ADDR", ":3000"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbedModel:    envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:     envOr("CHAT_MODEL", "gpt-4o-mini"),
		VectorDBURL:   os.Getenv("VECTOR_DB_URL"),
		VectorIndex:   envOr("VECTOR_INDEX_NAME", "visa_documents"),
		VectorDim:     envIntOr("EMBEDDING_DIMENSION", 1536),
		ChunkSize:     envIntOr("CHUNK_SIZE", 1000),
		ChunkOverlap:  envIntOr("CHUNK_OVERLAP", 200),
	}
}

func (c *Config) Validate() map[string]string {
	return validateStruct(c)
}

// Check turns missing settings into a classified fault.
func (c *Config) Check() error {
	if errs := c.Validate(); len(errs) > 0 {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		return NewFault(KindConfigurationMissing, fmt.Sprintf("incomplete configuration: %v", keys))
	}
	if c.ChunkSize <= c.ChunkOverlap || c.ChunkOverlap < 0 {
		return NewFault(KindConfigurationMissing, "chunk size must exceed overlap")
	}
	return nil
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
