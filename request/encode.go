// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ErrConflictingBody is wrapped by an EncodeError when more than one
// of Body, Form, JSON and Multipart is set on a plan.
var ErrConflictingBody = errors.New("more than one of Body, Form, JSON, Multipart set")

// An EncodeError indicates a plan body could not be encoded.
type EncodeError struct {
	// Kind is the body encoding: "json", "form", "multipart" or "body".
	Kind string
	Err  error
}

func (err *EncodeError) Error() string {
	return fmt.Sprintf("proxyx/request: encode %s body: %v", err.Kind, err.Err)
}

func (err *EncodeError) Unwrap() error {
	return err.Err
}

func (p *Plan) encodeBody() (body []byte, contentType string, err error) {
	n := 0
	for _, set := range []bool{len(p.Body) > 0, len(p.Form) > 0, p.JSON != nil, len(p.Multipart) > 0} {
		if set {
			n++
		}
	}
	if n > 1 {
		return nil, "", &EncodeError{Kind: "body", Err: ErrConflictingBody}
	}

	switch {
	case len(p.Multipart) > 0:
		return encodeMultipart(p.Multipart)
	case p.JSON != nil:
		b, err := json.Marshal(p.JSON)
		if err != nil {
			return nil, "", &EncodeError{Kind: "json", Err: err}
		}
		return b, "application/json", nil
	case len(p.Form) > 0:
		return []byte(p.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return p.Body, "", nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(parts []Part) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i := range parts {
		part := &parts[i]
		if part.Name == "" {
			return nil, "", &EncodeError{Kind: "multipart", Err: fmt.Errorf("part %d has no name", i)}
		}
		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(part.Name))
		if part.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(part.Filename))
		}
		h.Set("Content-Disposition", disposition)
		switch {
		case part.ContentType != "":
			h.Set("Content-Type", part.ContentType)
		case part.Filename != "":
			h.Set("Content-Type", "application/octet-stream")
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", &EncodeError{Kind: "multipart", Err: err}
		}
		if _, err = pw.Write(part.Content); err != nil {
			return nil, "", &EncodeError{Kind: "multipart", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", &EncodeError{Kind: "multipart", Err: err}
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func setBody(r *http.Request, body []byte) {
	if len(body) == 0 {
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))
}
