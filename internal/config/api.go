package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/JaimeStill/followup/pkg/auth"
	"github.com/JaimeStill/followup/pkg/middleware"
	"github.com/JaimeStill/followup/pkg/openapi"
	"github.com/JaimeStill/followup/pkg/pagination"
)

const EnvAPIBasePath = "FOLLOWUP_API_BASE_PATH"

// APIConfig holds the API mount point and the settings of its middleware
// and shared handlers.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
	OpenAPI    openapi.Config        `toml:"openapi"`
	Auth       auth.Config           `toml:"auth"`
}

// Finalize resolves BasePath to a cleaned sub-path such as /api or
// /clinic/v1, then finalizes each nested config.
func (c *APIConfig) Finalize() error {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %q", c.BasePath)
	}
	c.BasePath = path.Clean(c.BasePath)
	if c.BasePath == "/" {
		return fmt.Errorf("base_path must name a sub-path, got %q", c.BasePath)
	}

	nested := []struct {
		name     string
		finalize func() error
	}{
		{"cors", func() error { return c.CORS.Finalize(corsEnv) }},
		{"pagination", func() error { return c.Pagination.Finalize(paginationEnv) }},
		{"openapi", func() error { return c.OpenAPI.Finalize(openapiEnv) }},
		{"auth", func() error { return c.Auth.Finalize(authEnv) }},
	}
	for _, n := range nested {
		if err := n.finalize(); err != nil {
			return fmt.Errorf("%s: %w", n.name, err)
		}
	}
	return nil
}

// Merge applies the non-zero fields of overlay, including nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Auth.Merge(&overlay.Auth)
}
