package plugin

import (
	"github.com/Beijizb/obsidian-image-beiji/internal/config"
)

// FieldKind tells the host which control to render for a setting.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldPassword FieldKind = "password"
	FieldToggle   FieldKind = "toggle"
	FieldDropdown FieldKind = "dropdown"
	FieldNumber   FieldKind = "number"
)

// Field is one row of the settings panel.
type Field struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        FieldKind `json:"kind"`
	Value       any       `json:"value"`
	Options     []string  `json:"options,omitempty"`
}

// Upload channels and return formats the image store accepts.
var (
	UploadChannels = []string{"telegram", "cfr2", "s3"}
	ReturnFormats  = []string{"default", "full"}
)

// Settings describes the settings panel populated from the current
// snapshot. The auth code value is masked.
func (p *Plugin) Settings() []Field {
	return Fields(p.Config())
}

// Fields renders cfg as panel rows in display order.
func Fields(cfg config.Config) []Field {
	return []Field{
		{
			Key:         config.KeyAuthCode,
			Name:        "Auth code",
			Description: "Upload authentication code issued by the image store",
			Kind:        FieldPassword,
			Value:       cfg.Redacted().AuthCode,
		},
		{
			Key:         config.KeyDomain,
			Name:        "Domain",
			Description: "Image store base URL, e.g. " + config.DefaultDomain,
			Kind:        FieldText,
			Value:       cfg.Domain,
		},
		{
			Key:         config.KeyUploadChannel,
			Name:        "Upload channel",
			Description: "Storage backend the image store writes to",
			Kind:        FieldDropdown,
			Value:       cfg.UploadChannel,
			Options:     UploadChannels,
		},
		{
			Key:         config.KeyServerCompress,
			Name:        "Server compression",
			Description: "Let the image store compress uploads",
			Kind:        FieldToggle,
			Value:       cfg.ServerCompress,
		},
		{
			Key:         config.KeyReturnFormat,
			Name:        "Return format",
			Description: "Link format returned by the image store",
			Kind:        FieldDropdown,
			Value:       cfg.ReturnFormat,
			Options:     ReturnFormats,
		},
		{
			Key:         config.KeyUploadFolder,
			Name:        "Upload folder",
			Description: "Optional folder on the image store; leave blank for the root",
			Kind:        FieldText,
			Value:       cfg.UploadFolder,
		},
		{
			Key:         config.KeyUploadTimeout,
			Name:        "Upload timeout (ms)",
			Description: "Abort an upload after this many milliseconds",
			Kind:        FieldNumber,
			Value:       cfg.UploadTimeoutMs(),
		},
		{
			Key:         config.KeyWebPLossless,
			Name:        "Convert to lossless WebP",
			Description: "Convert pasted images to lossless WebP before upload",
			Kind:        FieldToggle,
			Value:       cfg.WebPLossless,
		},
	}
}
