// Package input reads saved configurations. A source is a local file, the
// standard input when the name is "-", or an http(s) URL. Gzip compressed
// sources are detected by their magic bytes and decompressed. Sources in a
// legacy single byte encoding are decoded to UTF-8.
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Stdin is the source name of the standard input.
const Stdin = "-"

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 3
)

var encodings = map[string]encoding.Encoding{
	"ISO8859_1":   charmap.ISO8859_1,
	"ISO8859_2":   charmap.ISO8859_2,
	"ISO8859_15":  charmap.ISO8859_15,
	"Windows1250": charmap.Windows1250,
	"Windows1251": charmap.Windows1251,
	"Windows1252": charmap.Windows1252,
	"KOI8R":       charmap.KOI8R,
	"Macintosh":   charmap.Macintosh,
}

// Options of the reader.
type Options struct {

	// Encoding of the sources. Empty or UTF8 means no decoding.
	Encoding string

	// Timeout of downloading a remote source. Defaults to 30s.
	Timeout time.Duration

	// Client used for remote sources. Defaults to an http.Client with
	// Timeout.
	Client *http.Client

	// MaxTries of downloading a remote source. Connection errors and 5xx
	// responses are retried. Defaults to 3.
	MaxTries uint

	// BackOff between the tries. Defaults to exponential backoff.
	BackOff backoff.BackOff

	// Stdin replaces os.Stdin, used in tests.
	Stdin io.Reader
}

// Encoding returns the decoder of the encoding name. It returns nil for
// UTF-8.
func Encoding(name string) (encoding.Encoding, error) {
	switch name {
	case "", "UTF8", "UTF-8", "utf8", "utf-8":
		return nil, nil
	}

	if e, ok := encodings[name]; ok {
		return e, nil
	}

	return nil, fmt.Errorf("unknown input encoding: %q", name)
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func (o Options) open(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case path == Stdin:
		if o.Stdin != nil {
			return io.NopCloser(o.Stdin), nil
		}

		return io.NopCloser(os.Stdin), nil
	case isRemote(path):
		return o.download(ctx, path)
	default:
		return os.Open(path)
	}
}

func (o Options) download(ctx context.Context, url string) (io.ReadCloser, error) {
	client := o.Client
	if client == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	maxTries := o.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	b := o.BackOff
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}

	get := func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		rsp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		if rsp.StatusCode != http.StatusOK {
			rsp.Body.Close()
			err := fmt.Errorf("failed to download remote file %s, status code: %d", url, rsp.StatusCode)
			if rsp.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}

			return nil, err
		}

		return rsp.Body, nil
	}

	return backoff.Retry(ctx, get,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warnf("Retrying download in %s: %v", next, err)
		}),
	)
}

func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		// too short to be compressed or not gzip
		return br, nil
	}

	return gzip.NewReader(br)
}

// Read returns the text of a single source.
func Read(ctx context.Context, path string, o Options) (string, error) {
	enc, err := Encoding(o.Encoding)
	if err != nil {
		return "", err
	}

	rc, err := o.open(ctx, path)
	if err != nil {
		return "", err
	}

	defer rc.Close()

	r, err := decompress(rc)
	if err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", path, err)
	}

	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	log.Debugf("Read %d bytes from %s", len(b), path)
	return string(b), nil
}

// ReadAll reads the sources in order and joins their text with line
// breaks. Without sources it reads the standard input.
func ReadAll(ctx context.Context, paths []string, o Options) (string, error) {
	if len(paths) == 0 {
		paths = []string{Stdin}
	}

	var b strings.Builder
	for _, p := range paths {
		text, err := Read(ctx, p, o)
		if err != nil {
			return "", err
		}

		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}
