package server

// ProtocolVersion is reported by initialize.
const ProtocolVersion = "1"

// Host-bound notification methods.
const (
	MethodReplaceSelection = "editor/replaceSelection"
	MethodShowMessage      = "window/showMessage"
)

// Method describes one request the server accepts.
type Method struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	ParamSchema map[string]interface{} `json:"paramSchema"`
}

// MethodDefinitions returns all request methods in the order methods/list
// reports them.
func MethodDefinitions() []Method {
	empty := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}

	return []Method{
		{
			Name:        "initialize",
			Description: "Activate the plugin and load settings once.",
			ParamSchema: empty,
		},
		{
			Name:        "paste",
			Description: "Handle a paste event. Returns defaultPrevented; when true the host must skip its own paste. Editor changes and notices arrive as editor/replaceSelection and window/showMessage notifications before the response.",
			ParamSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"items": map[string]interface{}{
						"type":        "array",
						"description": "Clipboard items in clipboard order",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"type": map[string]interface{}{
									"type":        "string",
									"description": "MIME type, e.g. image/png",
								},
								"name": map[string]interface{}{
									"type":        "string",
									"description": "Suggested file name",
								},
								"data": map[string]interface{}{
									"type":        "string",
									"description": "Base64-encoded item bytes",
								},
							},
							"required": []string{"type"},
						},
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Plain-text clipboard content",
					},
				},
			},
		},
		{
			Name:        "settings/list",
			Description: "List the settings panel fields with their current values. The auth code is masked.",
			ParamSchema: empty,
		},
		{
			Name:        "settings/update",
			Description: "Validate, persist and apply one setting.",
			ParamSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Setting key, e.g. cfAuthCode",
					},
					"value": map[string]interface{}{
						"type":        "string",
						"description": "New value in string form",
					},
				},
				"required": []string{"key", "value"},
			},
		},
		{
			Name:        "settings/reload",
			Description: "Re-read the settings store.",
			ParamSchema: empty,
		},
		{
			Name:        "shutdown",
			Description: "Wait for pending cleanups and stop the server.",
			ParamSchema: empty,
		},
		{
			Name:        "ping",
			Description: "Health check.",
			ParamSchema: empty,
		},
	}
}
