package blobpath

import (
	"mime"
	"strings"
)

// Blob extensions to MIME types. Checked before the system mime table so
// uploads get the same type on every platform.
var extensionToMIME = map[string]string{
	".txt":     "text/plain",
	".html":    "text/html",
	".htm":     "text/html",
	".css":     "text/css",
	".csv":     "text/csv",
	".md":      "text/markdown",
	".js":      "text/javascript",
	".json":    "application/json",
	".jsonl":   "application/jsonl",
	".ndjson":  "application/x-ndjson",
	".xml":     "application/xml",
	".yaml":    "application/yaml",
	".yml":     "application/yaml",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".png":     "image/png",
	".gif":     "image/gif",
	".svg":     "image/svg+xml",
	".webp":    "image/webp",
	".pdf":     "application/pdf",
	".zip":     "application/zip",
	".tar":     "application/x-tar",
	".gz":      "application/gzip",
	".zst":     "application/zstd",
	".lz4":     "application/x-lz4",
	".parquet": "application/vnd.apache.parquet",
}

// ContentType guesses the MIME type of the blob at p from its extension,
// falling back to application/octet-stream.
func ContentType(p Path) string {
	ext := strings.ToLower(p.Ext())
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
