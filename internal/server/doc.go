// Package server connects an editor host to the paste plugin.
//
// # Protocol
//
// The stdio server speaks JSON-RPC 2.0, one message per line:
//   - Input: requests on stdin
//   - Output: responses and notifications on stdout
//
// Supported methods:
//   - initialize: Activate the plugin and load settings
//   - methods/list: Enumerate supported methods
//   - paste: Handle one paste event
//   - settings/list, settings/update, settings/reload: Settings panel
//   - shutdown: Wait for pending cleanups and exit
//   - ping: Health check
//
// While a paste is handled the server emits notifications to the host:
//
//	{"jsonrpc":"2.0","method":"editor/replaceSelection","params":{"text":"![image.webp](https://...)"}}
//	{"jsonrpc":"2.0","method":"window/showMessage","params":{"level":"success","message":"Image uploaded","durationMs":3000}}
//
// All notifications for a paste precede its response, so a host may apply
// them in arrival order.
//
// # HTTP
//
// HTTPServer offers the same operations as REST routes under /v1 and
// returns the replacement text and notices in the paste response body.
// It also serves /healthz and Prometheus /metrics.
//
// # Logging
//
// stdout belongs to the protocol. Logs go to stderr.
package server
