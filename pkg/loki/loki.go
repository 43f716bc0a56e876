package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrStopped is returned by Push after the pusher was stopped.
var ErrStopped = errors.New("loki pusher stopped")

const levelLabel = "level"

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// Url of the push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// Labels are attached to every stream. The entry level is added as the "level" label.
	Labels map[string]string

	// BatchMaxSize is the number of buffered lines that triggers a push.
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the longest a buffered line waits for a push.
	BatchMaxWait time.Duration `validate:"gte=1"`

	// TenantKey and TenantValue set a tenant header for multi-tenant servers.
	TenantKey   string
	TenantValue string

	// Username and Password enable basic authentication when both are set.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level   string            `json:"level"`
	Message string            `json:"msg"`
	Caller  string            `json:"caller"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// batch buffers encoded lines per level, so every level becomes its own labelled stream.
type batch struct {
	lines map[string][][2]string
	size  int
}

func newBatch() *batch {
	return &batch{lines: make(map[string][][2]string)}
}

func (b *batch) add(entry LogEntry, at time.Time) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	b.lines[entry.Level] = append(b.lines[entry.Level], [2]string{strconv.FormatInt(at.UnixNano(), 10), string(line)})
	b.size++
	return nil
}

func (b *batch) streams(labels map[string]string) []stream {
	levels := make([]string, 0, len(b.lines))
	for level := range b.lines {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	streams := make([]stream, 0, len(levels))
	for _, level := range levels {
		streamLabels := make(map[string]string, len(labels)+1)
		for key, value := range labels {
			streamLabels[key] = value
		}
		if level != "" {
			streamLabels[levelLabel] = level
		}
		streams = append(streams, stream{Stream: streamLabels, Values: b.lines[level]})
	}
	return streams
}

func (b *batch) reset() {
	clear(b.lines)
	b.size = 0
}

// Pusher ships log entries to loki in gzip compressed batches from a single goroutine.
type Pusher struct {
	config   Config
	client   *http.Client
	logger   Logger
	ctx      context.Context
	cancel   context.CancelFunc
	entries  chan LogEntry
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(chan LogEntry, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go p.run()
	return p, nil
}

// Push queues a log line. It returns ErrStopped instead of blocking once the pusher is stopped.
func (p *Pusher) Push(e LogEntry) error {
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}

	select {
	case p.entries <- e:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// Stop pushes what is still buffered and releases the pusher. Repeated calls are no-ops.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		<-p.done
		p.cancel()
	})
}

func (p *Pusher) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	pending := newBatch()

	for {
		select {
		case entry := <-p.entries:
			p.add(pending, entry)
			if pending.size >= p.config.BatchMaxSize {
				p.flush(pending)
			}
		case <-ticker.C:
			p.flush(pending)
		case <-p.quit:
			p.shutdown(pending)
			return
		case <-p.ctx.Done():
			p.shutdown(pending)
			return
		}
	}
}

// shutdown takes the lines still sitting in the channel and pushes everything once more.
func (p *Pusher) shutdown(pending *batch) {
	for {
		select {
		case entry := <-p.entries:
			p.add(pending, entry)
		default:
			p.flush(pending)
			return
		}
	}
}

func (p *Pusher) add(pending *batch, entry LogEntry) {
	if err := pending.add(entry, time.Now()); err != nil {
		p.logger.Error("failed to encode log entry", "error", err)
	}
}

func (p *Pusher) flush(pending *batch) {
	if pending.size == 0 {
		return
	}
	if err := p.send(pending.streams(p.config.Labels)); err != nil {
		p.logger.Error("failed to send logs", "error", err, "lines", pending.size)
	}
	pending.reset()
}

func (p *Pusher) send(streams []stream) error {
	body, err := encodeRequest(pushRequest{Streams: streams})
	if err != nil {
		return err
	}

	// the final flush runs after cancellation, so the request outlives p.ctx
	req, err := http.NewRequestWithContext(context.WithoutCancel(p.ctx), http.MethodPost, p.config.Url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected loki response %s: %s", resp.Status, string(respBody))
	}
	return nil
}

func encodeRequest(request pushRequest) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if err := json.NewEncoder(gz).Encode(request); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}
