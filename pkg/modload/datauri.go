// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	dataScheme   = "data:"
	base64Marker = "base64"
	// defaultMediaType applies when a data URI omits its media type.
	defaultMediaType = "text/plain"
)

// ErrMalformedDataURI is returned for data URIs without a payload separator
// or with an undecodable payload.
var ErrMalformedDataURI = errors.New("malformed data URI")

// DataURI is a parsed data: specifier.
type DataURI struct {
	// MediaType is the lower-cased media type without parameters.
	MediaType string
	// Params holds media type parameters such as charset.
	Params map[string]string
	// Base64 reports whether the payload carried the ;base64 marker.
	Base64 bool
	// Payload is the decoded payload.
	Payload []byte
}

// IsDataURI reports whether specifier uses the data: scheme.
func IsDataURI(specifier string) bool {
	return len(specifier) >= len(dataScheme) && strings.EqualFold(specifier[:len(dataScheme)], dataScheme)
}

// ParseDataURI parses data:[mediatype][;base64],payload.
func ParseDataURI(specifier string) (*DataURI, error) {
	if !IsDataURI(specifier) {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrMalformedDataURI)
	}
	meta, payload, ok := strings.Cut(specifier[len(dataScheme):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing ',' before payload", ErrMalformedDataURI)
	}

	d := &DataURI{MediaType: defaultMediaType}
	parts := strings.Split(meta, ";")
	if n := len(parts); n > 1 && strings.EqualFold(strings.TrimSpace(parts[n-1]), base64Marker) {
		d.Base64 = true
		parts = parts[:n-1]
	}
	if mt := strings.Join(parts, ";"); strings.TrimSpace(mt) != "" {
		parsed, params, err := mime.ParseMediaType(mt)
		if err != nil {
			return nil, fmt.Errorf("%w: media type %q: %v", ErrMalformedDataURI, mt, err)
		}
		d.MediaType = parsed
		d.Params = params
	}

	var err error
	if d.Base64 {
		d.Payload, err = decodeBase64(payload)
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		d.Payload = []byte(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return d, nil
}

// IsJSON reports whether the media type denotes a JSON document.
func (d *DataURI) IsJSON() bool {
	return d.MediaType == "application/json" || d.MediaType == "text/json" || strings.HasSuffix(d.MediaType, "+json")
}

// Source returns the module source the URI synthesizes: a DataSource for
// JSON media types and a TextSource otherwise.
func (d *DataURI) Source() Source {
	if d.IsJSON() {
		return DataSource{JSON: d.Payload}
	}
	return TextSource{Text: d.Payload}
}

// DataPath returns the bounded canonical path of a data-URI specifier.
// Equal URIs map to the same path; the URI itself never becomes the key.
func DataPath(specifier string) CanonicalPath {
	return CanonicalPath(fmt.Sprintf("%s%016x", dataScheme, xxhash.Sum64String(specifier)))
}

// synthesize turns a data: specifier into a module source.
func synthesize(specifier string) (Source, error) {
	d, err := ParseDataURI(specifier)
	if err != nil {
		return nil, err
	}
	return d.Source(), nil
}

// decodeBase64 accepts padded and unpadded standard or URL alphabets.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("invalid base64 payload")
}
