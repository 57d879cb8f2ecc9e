package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/vcinteract/internal/logging"
)

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("submission already in flight")

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer records submission latency.
type Observer interface {
	Submission(kind, result string, elapsed time.Duration)
}

// Options configures a Pipeline.
type Options struct {
	BaseURL  string
	VideoFPS int
	Observer Observer
}

// Pipeline admits one in-flight submission at a time.
type Pipeline struct {
	logger   *slog.Logger
	doer     Doer
	base     *url.URL
	opts     Options
	inflight atomic.Bool
}

func New(logger *slog.Logger, doer Doer, opts Options) (*Pipeline, error) {
	if doer == nil {
		return nil, errors.New("submission requires an HTTP client")
	}
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server base url %q", opts.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &Pipeline{
		logger: logging.OrDiscard(logger),
		doer:   doer,
		base:   base,
		opts:   opts,
	}, nil
}

// Endpoint resolves the absolute URL for kind.
func (p *Pipeline) Endpoint(kind Kind) string {
	return p.base.ResolveReference(&url.URL{Path: kind.Endpoint()}).String()
}

// NewRequestID allocates the identifier sent as X-Request-ID.
func NewRequestID() string {
	return uuid.NewString()
}

// Submit posts req and maps the response onto a Result. The only error
// returned is ErrBusy; every other failure is a TransportError result.
func (p *Pipeline) Submit(ctx context.Context, req Request, requestID string) (Result, error) {
	if !p.inflight.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.inflight.Store(false)

	if requestID == "" {
		requestID = NewRequestID()
	}
	started := time.Now()
	result := p.submit(ctx, req, requestID)
	result.Latency = time.Since(started)
	result.RequestID = requestID

	attrs := []any{
		"request_id", requestID,
		"kind", string(req.Kind),
		"result", string(result.Kind),
		"duration_ms", result.Latency.Milliseconds(),
	}
	switch result.Kind {
	case ResultSuccess:
		p.logger.Info("submission complete", append(attrs, "status_code", result.StatusCode)...)
	case ResultServerError:
		p.logger.Warn("submission rejected", append(attrs, "status_code", result.StatusCode)...)
	default:
		p.logger.Error("submission failed", append(attrs, "error", result.Message)...)
	}
	if p.opts.Observer != nil {
		p.opts.Observer.Submission(string(req.Kind), string(result.Kind), result.Latency)
	}
	return result, nil
}

func (p *Pipeline) submit(ctx context.Context, req Request, requestID string) Result {
	body, contentType, err := p.encode(req)
	if err != nil {
		return transportError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(req.Kind), body)
	if err != nil {
		return transportError(err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := p.doer.Do(httpReq)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("read response: %w", err))
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Kind: ResultServerError, StatusCode: resp.StatusCode, Body: text}
	}
	return Result{Kind: ResultSuccess, StatusCode: resp.StatusCode, Body: text}
}

func (p *Pipeline) encode(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("text", req.Text); err != nil {
		return nil, "", fmt.Errorf("write text field: %w", err)
	}

	if field, contentType := req.Kind.fileField(); field != "" {
		if err := writeFilePart(writer, field, contentType, req.ArtifactPath); err != nil {
			return nil, "", err
		}
		if req.Kind == KindVideoText && p.opts.VideoFPS > 0 {
			if err := writer.WriteField("fps", strconv.Itoa(p.opts.VideoFPS)); err != nil {
				return nil, "", fmt.Errorf("write fps field: %w", err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, field, contentType, path string) error {
	if path == "" {
		return fmt.Errorf("%s submission has no file", field)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s file: %w", field, err)
	}
	defer func() { _ = f.Close() }()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}

func transportError(err error) Result {
	return Result{Kind: ResultTransportError, Message: err.Error(), Err: err}
}
