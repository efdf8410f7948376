// Package provider implements provider adapters over generic JSON REST APIs,
// configured per provider from YAML.
package provider

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unifiedsync/syncd/domain/entity"
)

// ErrConfig wraps invalid adapter configuration.
var ErrConfig = errors.New("invalid provider config")

// Config describes one provider's REST API.
//
//	providers:
//	  - name: hubspot
//	    base_url: https://api.hubapi.com
//	    auth: {header: Authorization, prefix: "Bearer ", token_env: HUBSPOT_TOKEN}
//	    account_header: X-Account
//	    entities:
//	      crm.note:
//	        path: /crm/v3/objects/notes
//	        envelope: results
//	        next: paging.next.after
//	        cursor_param: after
//	        create_path: /crm/v3/objects/notes
type Config struct {
	Name          string                    `yaml:"name"`
	BaseURL       string                    `yaml:"base_url"`
	Auth          AuthConfig                `yaml:"auth"`
	AccountHeader string                    `yaml:"account_header"`
	MaxRetries    int                       `yaml:"max_retries"`
	Entities      map[string]EndpointConfig `yaml:"entities"`
}

// AuthConfig sets a static credential header. Token wins over TokenEnv.
type AuthConfig struct {
	Header   string `yaml:"header"`
	Prefix   string `yaml:"prefix"`
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
}

// Value resolves the header value, or "" when no credential is configured.
func (a AuthConfig) Value() string {
	token := a.Token
	if token == "" && a.TokenEnv != "" {
		token = os.Getenv(a.TokenEnv)
	}
	if token == "" {
		return ""
	}
	return a.Prefix + token
}

// EndpointConfig describes how one entity type is read and created.
// Path templates may use {linked_account_id}, {scope_id} and
// {scope_remote_id}.
type EndpointConfig struct {
	Path string `yaml:"path"`
	// Envelope is the dotted key holding the record list; empty means the
	// body is the list.
	Envelope string `yaml:"envelope"`
	// Next is the dotted key of the next-page cursor in the response.
	Next string `yaml:"next"`
	// CursorParam is the query parameter the cursor is sent in.
	CursorParam string `yaml:"cursor_param"`
	// PropertiesParam carries requested remote properties, comma-joined.
	PropertiesParam string `yaml:"properties_param"`
	CreatePath      string `yaml:"create_path"`
	// CreateEnvelope wraps the payload of a create request and is unwrapped
	// from its response.
	CreateEnvelope string `yaml:"create_envelope"`
}

type fileDoc struct {
	Providers []Config `yaml:"providers"`
}

// LoadFile reads adapter configs from a YAML file.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates adapter configs.
func Parse(data []byte) ([]Config, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	seen := map[string]bool{}
	for _, c := range doc.Providers {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate provider %q", ErrConfig, c.Name)
		}
		seen[c.Name] = true
	}
	return doc.Providers, nil
}

// Validate checks a provider config.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrConfig)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: %s: base_url must be http(s)", ErrConfig, c.Name)
	}
	for _, k := range slices.Sorted(maps.Keys(c.Entities)) {
		if _, err := entity.ParseType(k); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfig, c.Name, err)
		}
		if c.Entities[k].Path == "" {
			return fmt.Errorf("%w: %s: %s: path is required", ErrConfig, c.Name, k)
		}
	}
	return nil
}
