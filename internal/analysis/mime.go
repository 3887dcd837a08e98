package analysis

import (
	"fmt"
	"path/filepath"
	"strings"
)

// mimeByExtension maps document extensions to the MIME types the inference
// service accepts as inline data. Office variants share one type each.
var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".xls":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".doc":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// InferMIMEType returns the MIME type for an attachment file name. It fails
// on unrecognised extensions rather than guessing, so callers surface the
// problem before the upload instead of after a confusing model reply.
func InferMIMEType(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("analysis: unsupported attachment type %q for %s", ext, name)
}
