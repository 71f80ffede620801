package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nicwaller/gelf"
)

const (
	DefaultHTTPPort = 12203
	DefaultHTTPPath = "/gelf"
)

type HTTPOptions struct {
	// URL wins over Host, Port and Path when set.
	URL  string
	Host string
	Port int
	Path string

	Timeout  time.Duration
	Compress bool
	Headers  map[string]string
	// Client replaces the default client, e.g. for HTTPS with custom roots.
	Client *http.Client
}

// HTTP POSTs each payload to a GELF HTTP input.
//
//goland:noinspection GoUnusedExportedFunction
func HTTP(opts HTTPOptions) (gelf.Sender, error) {
	endpoint, err := opts.endpoint()
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
		}
	}
	return &httpOutput{
		opts:     opts,
		endpoint: endpoint,
		client:   client,
	}, nil
}

func (o HTTPOptions) endpoint() (string, error) {
	if o.URL != "" {
		u, err := url.Parse(o.URL)
		if err != nil {
			return "", fmt.Errorf("invalid GELF HTTP url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("invalid GELF HTTP url %q: scheme must be http or https", o.URL)
		}
		return u.String(), nil
	}
	host := gelf.CoalesceStr(o.Host, "localhost")
	port := o.Port
	if port == 0 {
		port = DefaultHTTPPort
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   gelf.CoalesceStr(o.Path, DefaultHTTPPath),
	}
	return u.String(), nil
}

type httpOutput struct {
	opts     HTTPOptions
	endpoint string
	client   *http.Client
}

func (p *httpOutput) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed posting to GELF HTTP input: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.opts.Compress {
		// zlib framing is what HTTP calls deflate
		req.Header.Set("Content-Encoding", "deflate")
	}
	for k, v := range p.opts.Headers {
		req.Header.Set(k, v)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed posting to GELF HTTP input: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("GELF HTTP input rejected our message: %s", res.Status)
	}
	return nil
}

func (p *httpOutput) Compressed() bool {
	return p.opts.Compress
}

func (p *httpOutput) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
