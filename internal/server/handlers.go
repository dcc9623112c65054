package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/paste"
	"github.com/Beijizb/obsidian-image-beiji/internal/plugin"
)

// shutdownTimeout bounds how long shutdown waits for pending cleanups.
const shutdownTimeout = 10 * time.Second

// PasteParams carries one paste event. Item data is base64 in JSON.
type PasteParams struct {
	Items []paste.Item `json:"items"`
	Text  string       `json:"text"`
}

// Event builds the pipeline event for p targeting editor.
func (p PasteParams) Event(editor paste.Editor) *paste.Event {
	return &paste.Event{Items: p.Items, Text: p.Text, Editor: editor}
}

// PasteResult tells the host whether to run its own paste handling.
type PasteResult struct {
	DefaultPrevented bool `json:"defaultPrevented"`
}

// ReplaceSelectionParams is sent with editor/replaceSelection.
type ReplaceSelectionParams struct {
	Text string `json:"text"`
}

// ShowMessageParams is sent with window/showMessage.
type ShowMessageParams struct {
	Level      paste.Level `json:"level"`
	Message    string      `json:"message"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

func showMessage(n paste.Notice) ShowMessageParams {
	return ShowMessageParams{Level: n.Level, Message: n.Message, DurationMs: n.Duration.Milliseconds()}
}

// SettingUpdateParams sets one setting from its string form.
type SettingUpdateParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SettingsResult lists the settings panel.
type SettingsResult struct {
	Fields []plugin.Field `json:"fields"`
}

// hostEditor forwards editor mutations to the host as notifications.
type hostEditor struct {
	s *Server
}

func (e hostEditor) ReplaceSelection(text string) {
	e.s.notify(MethodReplaceSelection, ReplaceSelectionParams{Text: text})
}

// handlePaste runs the pipeline synchronously. Any editor/replaceSelection
// and window/showMessage notifications are written before the response.
func (s *Server) handlePaste(ctx context.Context, req *Request) *Response {
	var params PasteParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	notifier := paste.NotifierFunc(func(n paste.Notice) {
		s.notify(MethodShowMessage, showMessage(n))
	})
	prevented := s.plugin.HandlePaste(ctx, params.Event(hostEditor{s: s}), notifier)
	return result(req.ID, PasteResult{DefaultPrevented: prevented})
}

func (s *Server) handleSettingsList(req *Request) *Response {
	return result(req.ID, SettingsResult{Fields: s.plugin.Settings()})
}

func (s *Server) handleSettingsUpdate(req *Request) *Response {
	var params SettingUpdateParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	if err := s.plugin.UpdateSetting(params.Key, params.Value); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			return errorResponse(req.ID, codeInvalidParams, "Invalid setting", cfgErr.Error())
		}
		return errorResponse(req.ID, codeServerError, "Failed to save settings", err.Error())
	}
	return result(req.ID, SettingsResult{Fields: s.plugin.Settings()})
}

func (s *Server) handleSettingsReload(req *Request) *Response {
	if err := s.plugin.Reload(); err != nil {
		return errorResponse(req.ID, codeServerError, "Failed to reload settings", err.Error())
	}
	return result(req.ID, SettingsResult{Fields: s.plugin.Settings()})
}

func (s *Server) handleShutdown(ctx context.Context, req *Request) *Response {
	s.shutdown = true

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.plugin.OnDeactivate(ctx); err != nil {
		return errorResponse(req.ID, codeInternalError, "Shutdown incomplete", err.Error())
	}
	return result(req.ID, map[string]interface{}{})
}
