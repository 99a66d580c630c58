package preview

import (
	"encoding/base64"
	"strings"
)

const (
	DefaultHTML = "<h1>v1 hello prod</h1>"

	LocalURL = "http://localhost:3000/api/v1/preview/create"
	ProdURL  = "http://www.binbody.com/api/v1/preview/create"

	IndexFile = "index.html"
)

// HTMLPayload is the short form accepted by the create endpoint: a single
// HTML snippet that the service wraps into index.html.
type HTMLPayload struct {
	HTML string `json:"html"`
}

// File is one entry of a FilesPayload. Content is base64 encoded.
type File struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type FilesPayload struct {
	Files []File `json:"files"`
}

// NewFilesPayload builds the long form carrying html as index.html.
func NewFilesPayload(html string) FilesPayload {
	return FilesPayload{
		Files: []File{{
			Path:        IndexFile,
			Content:     base64.StdEncoding.EncodeToString([]byte(html)),
			ContentType: "text/html",
		}},
	}
}

const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Preview</title>
</head>
<body>
%s
</body>
</html>`

// WrapHTML returns content as a full document. Content that already has an
// <html element is returned as is.
func WrapHTML(content string) string {
	if strings.Contains(content, "<html") {
		return content
	}
	return strings.Replace(documentTemplate, "%s", content, 1)
}
