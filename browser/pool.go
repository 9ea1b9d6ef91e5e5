// ABOUTME: This file implements the browser context pool for rendered fetches.
// ABOUTME: Workers hold proxy-paired contexts and serve requests from a queue.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"news-harvester/config"
	"news-harvester/domain"
	appOtel "news-harvester/utils/otel"
)

const closeTimeout = 5 * time.Second

// ProxySource leases upstream proxies for rendering sessions.
// *proxy.Pool satisfies it.
type ProxySource interface {
	Acquire(ctx context.Context) (domain.ProxyRecord, error)
	Release(addr string)
	ReportSuccess(ctx context.Context, addr string)
	ReportFailure(ctx context.Context, addr string)
}

type renderRequest struct {
	ctx     context.Context
	url     string
	timeout time.Duration
	reply   chan renderReply
}

type renderReply struct {
	html string
	err  error
}

// session pairs one engine context with the proxy it was created on.
type session struct {
	context   EngineContext
	proxyAddr string
}

// Pool serves rendered page fetches through a fixed set of workers.
// Each worker lazily opens one engine context and keeps it across
// requests until a navigation fails, which tears the context down so
// the next request starts fresh on a newly leased proxy.
type Pool struct {
	engine  Engine
	proxies ProxySource
	logger  *slog.Logger

	requests  chan *renderRequest
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts cfg.PoolSize workers. A nil proxies source creates
// contexts without proxies.
func NewPool(engine Engine, proxies ProxySource, cfg *config.BrowserConfig, logger *slog.Logger) *Pool {
	p := &Pool{
		engine:   engine,
		proxies:  proxies,
		logger:   logger,
		requests: make(chan *renderRequest, cfg.QueueCapacity),
		quit:     make(chan struct{}),
	}

	size := cfg.PoolSize
	if size <= 0 {
		size = 1
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	p.logger.Info("browser pool started", "workers", size, "queue_capacity", cfg.QueueCapacity)
	return p
}

// Fetch renders pageURL and returns the settled HTML. The navigation is
// bounded by timeout on top of ctx.
func (p *Pool) Fetch(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	select {
	case <-p.quit:
		return "", domain.ErrPoolClosed
	default:
	}

	req := &renderRequest{
		ctx:     ctx,
		url:     pageURL,
		timeout: timeout,
		reply:   make(chan renderReply, 1),
	}

	select {
	case p.requests <- req:
	case <-p.quit:
		return "", domain.ErrPoolClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case reply := <-req.reply:
		return reply.html, reply.err
	case <-p.quit:
		return "", domain.ErrPoolClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the workers and disposes their contexts. Requests still
// queued fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.logger.Info("browser pool stopped")
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	var sess *session
	defer func() {
		if sess != nil {
			p.teardown(sess)
		}
	}()

	for {
		select {
		case <-p.quit:
			return
		case req := <-p.requests:
			html, err := p.render(req, &sess)
			req.reply <- renderReply{html: html, err: err}
		}
	}
}

func (p *Pool) render(req *renderRequest, sess **session) (string, error) {
	if err := req.ctx.Err(); err != nil {
		return "", err
	}

	if *sess == nil {
		created, err := p.newSession(req.ctx)
		if err != nil {
			return "", err
		}
		*sess = created
	}

	navCtx, cancel := context.WithTimeout(req.ctx, req.timeout)
	defer cancel()

	html, err := (*sess).context.Navigate(navCtx, req.url)
	appOtel.RecordBrowserRender(req.ctx, err == nil)

	if err != nil {
		if p.proxies != nil && (*sess).proxyAddr != "" {
			p.proxies.ReportFailure(req.ctx, (*sess).proxyAddr)
		}
		p.teardown(*sess)
		*sess = nil
		return "", err
	}

	if p.proxies != nil && (*sess).proxyAddr != "" {
		p.proxies.ReportSuccess(req.ctx, (*sess).proxyAddr)
	}
	return html, nil
}

func (p *Pool) newSession(ctx context.Context) (*session, error) {
	var proxyURL *url.URL
	addr := ""

	if p.proxies != nil {
		record, err := p.proxies.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		addr = record.Addr()

		parsed, err := url.Parse(record.URL())
		if err != nil {
			p.proxies.Release(addr)
			return nil, fmt.Errorf("proxy url %s: %w", addr, err)
		}
		proxyURL = parsed
	}

	engineCtx, err := p.engine.NewContext(ctx, proxyURL)
	if err != nil {
		if p.proxies != nil && addr != "" {
			p.proxies.Release(addr)
		}
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	p.logger.Debug("browser context created", "proxy", addr)
	return &session{context: engineCtx, proxyAddr: addr}, nil
}

func (p *Pool) teardown(sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := sess.context.Close(ctx); err != nil {
		p.logger.Warn("browser context close failed", "proxy", sess.proxyAddr, "error", err)
	}
	if p.proxies != nil && sess.proxyAddr != "" {
		p.proxies.Release(sess.proxyAddr)
	}
}
