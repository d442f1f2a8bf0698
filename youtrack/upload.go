package youtrack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// DefaultContentType is used for uploads whose extension is not recognised
const DefaultContentType = "application/octet-stream"

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ContentTypeForFile resolves a MIME type from the file name's extension.
// The file itself is not read.
func ContentTypeForFile(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return DefaultContentType
	}

	if kind := filetype.GetType(ext); kind != filetype.Unknown && kind.MIME.Value != "" {
		return kind.MIME.Value
	}
	if mediaType := mime.TypeByExtension("." + ext); mediaType != "" {
		return mediaType
	}
	return DefaultContentType
}

// PostFile uploads a single file as multipart/form-data under the field "file"
func (c *Connection) PostFile(ctx context.Context, path, filePath string) (*Response, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(filePath))))
	header.Set("Content-Type", ContentTypeForFile(filePath))
	header.Set("Content-Transfer-Encoding", "binary")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart section: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	c.logger.Debug().
		Str("file", filePath).
		Int("bytes", body.Len()).
		Msg("Uploading file to YouTrack")

	return c.do(ctx, http.MethodPost, path, &body, writer.FormDataContentType(), acceptXML)
}
