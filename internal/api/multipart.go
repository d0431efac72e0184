package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// File is one file part of a multipart body.
type File struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is an opaque multipart/form-data body. It carries its own
// boundary-bearing content type, which the pipeline sends unchanged.
type Multipart struct {
	contentType string
	body        *bytes.Buffer
}

// NewMultipart encodes fields (in key order) followed by files.
func NewMultipart(fields map[string]string, files ...File) (*Multipart, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %q: %w", k, err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create part %q: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to copy %q: %w", f.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Multipart{contentType: w.FormDataContentType(), body: buf}, nil
}

// ContentType returns the multipart/form-data content type with boundary.
func (m *Multipart) ContentType() string { return m.contentType }

// Len returns the encoded size in bytes.
func (m *Multipart) Len() int { return m.body.Len() }

func (m *Multipart) reader() io.Reader { return bytes.NewReader(m.body.Bytes()) }
