// Package plugin is the boundary between an editor host and the paste
// pipeline.
//
// The host calls OnActivate once, hands every paste event to HandlePaste,
// and calls OnDeactivate on shutdown. Settings edits go through
// UpdateSetting, which persists the value and reloads the snapshot; the
// pipeline never observes a half-applied change.
package plugin
