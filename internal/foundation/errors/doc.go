// Package errors provides the classified error primitives used across mdsite.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a
// category (filesystem, encoding, watcher, ...), a severity and a retry hint.
// The CLI and HTTP adapters translate those into exit codes and status codes.
//
// Example usage:
//
//	err := errors.FileSystemError("read content file").
//		WithCause(readErr).
//		WithContext("path", path).
//		Build()
package errors
