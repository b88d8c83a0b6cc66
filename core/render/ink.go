// Package render — mermaid.ink backend.
// Renders diagrams through the mermaid.ink HTTP service for machines
// without a local mmdc. The diagram travels in the URL as a pako payload
// (zlib-compressed JSON, URL-safe base64), the same encoding the
// mermaid.live editor reads.
package render

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp" // registers the WebP decoder

	"github.com/gaurav-prasanna/diagrampipe/core/fetch"
)

const (
	DefaultInkURL = "https://mermaid.ink"
	liveEditorURL = "https://mermaid.live/edit#"
)

// Ink renders diagrams via mermaid.ink.
type Ink struct {
	opts    Options
	fetcher *fetch.HTTPFetcher
}

// NewInk creates an Ink renderer with defaults filled in.
func NewInk(opts Options) *Ink {
	opts = opts.withDefaults()
	return &Ink{opts: opts, fetcher: fetch.New(opts.Timeout)}
}

// Check validates the service URL. It does not touch the network.
func (r *Ink) Check(_ context.Context) error {
	u, err := url.Parse(r.opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid mermaid.ink URL %q", ErrRendererUnavailable, r.opts.BaseURL)
	}
	return nil
}

// Path returns the service URL.
func (r *Ink) Path() string {
	return r.opts.BaseURL
}

// Pako encodes a diagram as a pako payload.
func Pako(source string, theme string) (string, error) {
	if theme == "" {
		theme = "default"
	}
	payload, err := json.Marshal(map[string]any{
		"code":    source,
		"mermaid": map[string]string{"theme": theme},
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(payload); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return "pako:" + base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// LiveURL returns a mermaid.live editor link for source.
func LiveURL(source string) (string, error) {
	pako, err := Pako(source, "")
	if err != nil {
		return "", err
	}
	return liveEditorURL + pako, nil
}

// ImageURL returns the mermaid.ink image URL for source.
func (r *Ink) ImageURL(source string) (string, error) {
	pako, err := Pako(source, r.opts.Theme)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("type", "webp")
	q.Set("width", strconv.Itoa(r.opts.Width))
	q.Set("height", strconv.Itoa(r.opts.Height))
	if r.opts.Theme != "" {
		q.Set("theme", r.opts.Theme)
	}
	if bg := r.opts.Background; bg != "" && bg != DefaultBackground {
		q.Set("bgColor", "!"+strings.TrimPrefix(bg, "#"))
	}
	return strings.TrimSuffix(r.opts.BaseURL, "/") + "/img/" + pako + "?" + q.Encode(), nil
}

// Render downloads the image for source and stores it as PNG at output.
func (r *Ink) Render(ctx context.Context, source string, output string) error {
	imgURL, err := r.ImageURL(source)
	if err != nil {
		return &Error{Output: output, Message: "encoding diagram", Cause: err}
	}

	data, err := r.fetcher.Fetch(ctx, imgURL)
	if err != nil {
		detail := ""
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			detail = strings.TrimSpace(statusErr.Body)
		}
		return &Error{Output: output, Message: "downloading image", Detail: detail, Cause: err}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return &Error{Output: output, Message: "decoding downloaded image", Cause: err}
	}

	if err := writePNG(output, img); err != nil {
		return &Error{Output: output, Message: "writing " + format + " as png", Cause: err}
	}

	if _, err := os.Stat(output); err != nil {
		return &Error{Output: output, Message: "image not written", Cause: ErrOutputMissing}
	}
	return nil
}

// writePNG encodes img to path, removing a partial file on failure.
func writePNG(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return png.Encode(f, img)
}
