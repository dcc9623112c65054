// Package imaging normalizes pasted images into the canonical upload format.
//
// A Source is captured from the clipboard (bytes plus declared type and
// suggested name) or from a local path referenced in pasted text. The
// Normalizer either passes the source through untouched or, when lossless
// conversion is enabled, decodes it and re-encodes it as lossless WebP
// (VP8L) into a uniquely named temporary file.
//
// # Supported Inputs
//
// Decoding goes through disintegration/imaging and the standard image
// registry: PNG, JPEG, GIF, BMP, TIFF and WebP. Anything else fails with a
// ConversionError.
//
// # Temporary Files
//
// Converted files are written to os.TempDir() (or the directory given with
// WithTempDir) as <base>-<unixnano>-<random>.webp. The Normalizer never
// deletes them; ownership passes to the caller through Asset.Temporary.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Missing or unreadable source files
//   - Data that no registered decoder accepts
//   - Images the WebP encoder rejects (dimensions above 16384 pixels)
package imaging
