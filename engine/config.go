package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/konnta0/zenoh-bridge/errors"
)

// Config carries the engine settings parsed from the session configuration
// text. The boundary treats the text as opaque beyond "valid vs invalid";
// the fields here belong to the engine.
type Config struct {
	// Namespace scopes all traffic for the session; sessions in different
	// namespaces never see each other.
	Namespace string `json:"namespace"`

	// Listen are the transport addresses the engine binds.
	Listen []string `json:"listen"`

	// Connect are addresses of remote endpoints to dial at open.
	Connect []string `json:"connect"`

	// QueryTimeoutMS bounds how long a get waits for unresolved queryables.
	// Timeouts are an engine concern; the boundary exposes no parameter.
	QueryTimeoutMS int `json:"query_timeout_ms"`
}

// DefaultConfig returns the configuration used when the session is opened
// with empty or absent config text.
func DefaultConfig() Config {
	return Config{
		Namespace:      "zenoh",
		Listen:         []string{"/ip4/127.0.0.1/tcp/0"},
		QueryTimeoutMS: 5000,
	}
}

// ParseConfig decodes a JSON configuration document. Empty input yields the
// defaults; unknown fields are rejected, making the valid/invalid contract
// of the boundary strict.
func ParseConfig(text []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(text)) == 0 {
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.InvalidConfig(err)
	}
	// The document must be a single JSON value with nothing after it.
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return Config{}, errors.InvalidConfig(fmt.Errorf("trailing data after configuration document"))
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultConfig().Namespace
	}
	if len(cfg.Listen) == 0 {
		cfg.Listen = DefaultConfig().Listen
	}
	if cfg.QueryTimeoutMS <= 0 {
		cfg.QueryTimeoutMS = DefaultConfig().QueryTimeoutMS
	}
	return cfg, nil
}

// QueryTimeout returns the configured query timeout as a duration.
func (c Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}
