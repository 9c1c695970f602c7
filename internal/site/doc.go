// Package site builds a static HTML site from a content directory tree.
//
// Builder walks a source directory, converts content files to pages, copies
// passthrough assets, recurses into subdirectories and finally asks the
// IndexGenerator to write the directory's index.html. Every build starts from
// an empty output directory; nothing is patched incrementally.
//
// The index of a directory is produced from its index source: a user-authored
// index.html in the source directory in which every {{LINKS}} token is replaced
// by the generated link list. When no index source exists a default one is
// written into the source directory and kept for later builds.
package site
