package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting keys as persisted by the host settings store.
const (
	KeyAuthCode       = "cfAuthCode"
	KeyDomain         = "cfDomain"
	KeyUploadChannel  = "cfUploadChannel"
	KeyServerCompress = "cfServerCompress"
	KeyReturnFormat   = "cfReturnFormat"
	KeyUploadFolder   = "cfUploadFolder"
	KeyUploadTimeout  = "uploadTimeout"
	KeyWebPLossless   = "webpLossless"
)

// Keys lists every persisted key in display order.
var Keys = []string{
	KeyAuthCode,
	KeyDomain,
	KeyUploadChannel,
	KeyServerCompress,
	KeyReturnFormat,
	KeyUploadFolder,
	KeyUploadTimeout,
	KeyWebPLossless,
}

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. IMGPASTE_CFAUTHCODE.
const EnvPrefix = "IMGPASTE"

// Store is the host-provided key/value settings store.
type Store interface {
	Load() (Partial, error)
	Save(Config) error
}

// FileStore persists settings as a JSON document. Reads go through viper.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file need
// not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "imgpaste", "settings.json")
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the settings file and environment overrides. A missing file is
// not an error; every field is then reported unset.
func (s *FileStore) Load() (Partial, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return Partial{}, fmt.Errorf("failed to read settings %s: %w", s.path, err)
		}
	}

	var p Partial
	if v.IsSet(KeyAuthCode) {
		p.AuthCode = ptr(v.GetString(KeyAuthCode))
	}
	if v.IsSet(KeyDomain) {
		p.Domain = ptr(v.GetString(KeyDomain))
	}
	if v.IsSet(KeyUploadChannel) {
		p.UploadChannel = ptr(v.GetString(KeyUploadChannel))
	}
	if v.IsSet(KeyServerCompress) {
		p.ServerCompress = ptr(v.GetBool(KeyServerCompress))
	}
	if v.IsSet(KeyReturnFormat) {
		p.ReturnFormat = ptr(v.GetString(KeyReturnFormat))
	}
	if v.IsSet(KeyUploadFolder) {
		p.UploadFolder = ptr(v.GetString(KeyUploadFolder))
	}
	if v.IsSet(KeyUploadTimeout) {
		p.UploadTimeoutMs = ptr(v.GetInt(KeyUploadTimeout))
	}
	if v.IsSet(KeyWebPLossless) {
		p.WebPLossless = ptr(v.GetBool(KeyWebPLossless))
	}
	return p, nil
}

// Save writes the full configuration under the exact key names the host
// reads. viper folds keys to lower case on write, so the file is encoded
// directly. Environment overrides are not written back.
func (s *FileStore) Save(c Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	b, err := json.MarshalIndent(Values(c), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, append(b, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return nil
}

// Values flattens c into the key/value form the store persists.
func Values(c Config) map[string]any {
	return map[string]any{
		KeyAuthCode:       c.AuthCode,
		KeyDomain:         c.Domain,
		KeyUploadChannel:  c.UploadChannel,
		KeyServerCompress: c.ServerCompress,
		KeyReturnFormat:   c.ReturnFormat,
		KeyUploadFolder:   c.UploadFolder,
		KeyUploadTimeout:  c.UploadTimeoutMs(),
		KeyWebPLossless:   c.WebPLossless,
	}
}

// Apply returns a copy of c with key set from its string form. Key lookup
// is case-insensitive.
func Apply(c Config, key, value string) (Config, error) {
	switch canonicalKey(key) {
	case KeyAuthCode:
		c.AuthCode = strings.TrimSpace(value)
	case KeyDomain:
		d := strings.TrimSpace(value)
		if d == "" {
			d = DefaultDomain
		}
		if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
			return c, &ConfigurationError{Field: KeyDomain, Message: "domain must start with http:// or https://"}
		}
		c.Domain = d
	case KeyUploadChannel:
		c.UploadChannel = strings.TrimSpace(value)
	case KeyServerCompress:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return c, &ConfigurationError{Field: KeyServerCompress, Message: "expected true or false"}
		}
		c.ServerCompress = b
	case KeyReturnFormat:
		c.ReturnFormat = strings.TrimSpace(value)
	case KeyUploadFolder:
		c.UploadFolder = value
	case KeyUploadTimeout:
		ms, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || ms <= 0 {
			return c, &ConfigurationError{Field: KeyUploadTimeout, Message: "expected a positive number of milliseconds"}
		}
		c.UploadTimeout = time.Duration(ms) * time.Millisecond
	case KeyWebPLossless:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return c, &ConfigurationError{Field: KeyWebPLossless, Message: "expected true or false"}
		}
		c.WebPLossless = b
	default:
		return c, &ConfigurationError{Field: key, Message: "unknown setting"}
	}
	return c, nil
}

func canonicalKey(key string) string {
	for _, k := range Keys {
		if strings.EqualFold(k, strings.TrimSpace(key)) {
			return k
		}
	}
	return key
}

func ptr[T any](v T) *T {
	return &v
}
