// Package paste intercepts editor paste events and turns image pastes into
// links to the remote image store.
//
// An Event is offered to each Extractor in order. The first one that finds
// an image source wins: the default paste is suppressed and the source runs
// through normalization, upload and editor replacement. Pipeline failures
// become a single error notice and never reach the caller.
//
//	o := paste.New(normalizer, publisher, cleaner, notifier)
//	handled := o.HandlePaste(ctx, cfg, ev)
package paste
