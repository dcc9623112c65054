// Package config holds the uploader settings and the host settings store.
//
// A Config value is loaded once, merged over documented defaults, and passed
// explicitly into every pipeline call. Nothing in the pipeline reads settings
// implicitly; changes take effect only after an explicit reload.
//
// # Persistence
//
// FileStore reads settings from a JSON document through viper and writes
// them back with encoding/json. Keys match the names the editor plugin has
// always used (cfAuthCode, cfDomain, ...) and may be overridden by
// IMGPASTE_<KEY> environment variables.
package config
