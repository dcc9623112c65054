package config

import (
	"fmt"
	"strings"
	"time"
)

// Default values applied to any field the settings store leaves unset.
const (
	DefaultDomain          = "https://img.966001.xyz"
	DefaultUploadChannel   = "telegram"
	DefaultServerCompress  = true
	DefaultReturnFormat    = "default"
	DefaultUploadFolder    = ""
	DefaultUploadTimeoutMs = 15000
	DefaultWebPLossless    = true
)

// Config is the immutable snapshot handed to every pipeline call.
type Config struct {
	AuthCode       string        `json:"cfAuthCode"`
	Domain         string        `json:"cfDomain"`
	UploadChannel  string        `json:"cfUploadChannel"`
	ServerCompress bool          `json:"cfServerCompress"`
	ReturnFormat   string        `json:"cfReturnFormat"`
	UploadFolder   string        `json:"cfUploadFolder"`
	UploadTimeout  time.Duration `json:"-"`
	WebPLossless   bool          `json:"webpLossless"`
}

// Default returns a Config populated with documented defaults.
func Default() Config {
	return Config{
		Domain:         DefaultDomain,
		UploadChannel:  DefaultUploadChannel,
		ServerCompress: DefaultServerCompress,
		ReturnFormat:   DefaultReturnFormat,
		UploadFolder:   DefaultUploadFolder,
		UploadTimeout:  DefaultUploadTimeoutMs * time.Millisecond,
		WebPLossless:   DefaultWebPLossless,
	}
}

// UploadTimeoutMs reports the timeout in the unit the settings store uses.
func (c Config) UploadTimeoutMs() int {
	return int(c.UploadTimeout / time.Millisecond)
}

// Validate checks the invariants that must hold before any upload.
func (c Config) Validate() error {
	if c.AuthCode == "" {
		return &ConfigurationError{Field: KeyAuthCode, Message: "auth code is not configured"}
	}
	return nil
}

// Redacted returns a copy safe to print or log.
func (c Config) Redacted() Config {
	out := c
	if out.AuthCode != "" {
		out.AuthCode = mask(out.AuthCode)
	}
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// Partial is what a settings store returns: nil fields were never set.
type Partial struct {
	AuthCode        *string
	Domain          *string
	UploadChannel   *string
	ServerCompress  *bool
	ReturnFormat    *string
	UploadFolder    *string
	UploadTimeoutMs *int
	WebPLossless    *bool
}

// Merge overlays the set fields of p on top of the defaults.
func Merge(p Partial) Config {
	c := Default()
	if p.AuthCode != nil {
		c.AuthCode = *p.AuthCode
	}
	if p.Domain != nil && strings.TrimSpace(*p.Domain) != "" {
		c.Domain = *p.Domain
	}
	if p.UploadChannel != nil && *p.UploadChannel != "" {
		c.UploadChannel = *p.UploadChannel
	}
	if p.ServerCompress != nil {
		c.ServerCompress = *p.ServerCompress
	}
	if p.ReturnFormat != nil && *p.ReturnFormat != "" {
		c.ReturnFormat = *p.ReturnFormat
	}
	if p.UploadFolder != nil {
		c.UploadFolder = *p.UploadFolder
	}
	if p.UploadTimeoutMs != nil && *p.UploadTimeoutMs > 0 {
		c.UploadTimeout = time.Duration(*p.UploadTimeoutMs) * time.Millisecond
	}
	if p.WebPLossless != nil {
		c.WebPLossless = *p.WebPLossless
	}
	return c
}

// ConfigurationError reports a setting that blocks the pipeline.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Field)
}
