// Package publish uploads normalized images to the remote image store.
//
// # Protocol
//
// One multipart POST per asset:
//
//	POST {domain}/upload?authCode=..&serverCompress=true&uploadChannel=..&returnFormat=..&autoRetry=true[&uploadFolder=..]
//	Content-Type: multipart/form-data; boundary=...
//
//	file=<image bytes, filename, content type>
//
// A 2xx response carries a JSON array whose first element has a src field
// relative to the domain, e.g. [{"src":"/file/abc.webp"}]. The public URL is
// domain + src.
//
// # Error Handling
//
// The client does not retry. autoRetry=true asks the store to retry on its
// side; that behaviour is opaque here. Every failure is one of:
//   - *UploadError: transport failure, timeout or non-2xx status
//   - *ResponseShapeError: 2xx with a body that is not [{"src": ...}, ...]
package publish
