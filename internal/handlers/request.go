package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dailyscrum/internal/upload"

	"github.com/gofiber/fiber/v2"
)

// uploadField is the multipart field carrying attachments.
const uploadField = "files"

var errNotText = errors.New("expected a string")

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// bodyFields returns the text fields present in the body. Multipart, urlencoded
// and JSON bodies are accepted. A JSON null is an explicit empty value, which
// is different from a missing key.
func bodyFields(c *fiber.Ctx) (map[string]string, error) {
	fields := make(map[string]string)
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		for k, v := range form.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			fields[string(k)] = string(v)
		})
	case len(bytes.TrimSpace(c.Body())) == 0:
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		var raw map[string]json.RawMessage
		if err := c.App().Config().JSONDecoder(c.Body(), &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for k, v := range raw {
			s, err := decodeText(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = s
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	return fields, nil
}

// decodeText reads a JSON scalar as text. Numbers and booleans keep their literal form.
func decodeText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", errNotText
	default:
		return string(trimmed), nil
	}
}

func optional(fields map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return &v
		}
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. Empty means unset.
func parseDate(v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("createdAt %q is not an RFC 3339 timestamp or a YYYY-MM-DD date", s)
}

// uploadedFiles reads every attachment of a multipart request into memory.
func uploadedFiles(c *fiber.Ctx, max int) ([]upload.File, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	headers := form.File[uploadField]
	if max > 0 && len(headers) > max {
		return nil, fmt.Errorf("at most %d files per request, got %d", max, len(headers))
	}

	files := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		files = append(files, upload.File{
			Data:        data,
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
		})
	}
	return files, nil
}
