// Package contenttype is the static extension→MIME-type table queried
// by the response builder. It is the "content-type table" spec.md §1
// calls out as an external collaborator the core only queries — pure
// data, no third-party dependency fits (or is needed) here.
package contenttype

import "strings"

const octetStream = "application/octet-stream"

var byExtension = map[string]string{
	"bin":  octetStream,
	"bmp":  "image/bmp",
	"css":  "text/css",
	"csv":  "text/csv",
	"gif":  "image/gif",
	"html": "text/html",
	"htm":  "text/html",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"js":   "text/javascript",
	"mjs":  "text/javascript",
	"json": "application/json",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"otf":  "font/otf",
	"png":  "image/png",
	"pdf":  "application/pdf",
	"svg":  "image/svg+xml",
	"ttf":  "font/ttf",
	"txt":  "text/plain",
}

// FromExtension returns the MIME type for a lowercased extension
// (without the leading dot), or application/octet-stream if unknown.
func FromExtension(ext string) string {
	if ct, ok := byExtension[strings.ToLower(ext)]; ok {
		return ct
	}
	return octetStream
}

// FromFilename derives the extension from name (text after the last
// '.') and looks it up via FromExtension.
func FromFilename(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return octetStream
	}
	return FromExtension(name[idx+1:])
}
