package httpclient

import (
	"compress/gzip"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"GameSync/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	// DialTimeout 建连超时
	DialTimeout = 5 * time.Second
	// DefaultTimeout 单次请求整体超时（含读取响应）
	DefaultTimeout = 60 * time.Second

	userAgent = "GameSync/1.0"
)

// NewHTTPClient 按数据源配置构建客户端：代理、超时、gzip 解压、请求日志
func NewHTTPClient(cfg *config.ProviderConfig, logger *logrus.Logger) *http.Client {
	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			next:   baseTransport(cfg, timeout, logger),
			logger: logger,
		},
	}
}

func baseTransport(cfg *config.ProviderConfig, timeout time.Duration, logger *logrus.Logger) *http.Transport {
	t := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	if cfg.Proxy == "" {
		return t
	}
	proxyURL, err := url.Parse(cfg.Proxy)
	if err != nil {
		logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，直连")
		return t
	}
	t.Proxy = http.ProxyURL(proxyURL)
	logger.WithField("proxy", cfg.Proxy).Info("HTTP客户端使用代理")
	return t
}

// loggingTransport 补 User-Agent 与 gzip 头，记录每次请求的耗时和状态码
type loggingTransport struct {
	next   http.RoundTripper
	logger *logrus.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	fields := logrus.Fields{"method": req.Method, "host": req.URL.Host, "path": req.URL.Path}
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields["elapsed"] = time.Since(start).String()
	if err != nil {
		t.logger.WithError(err).WithFields(fields).Debug("HTTP请求失败")
		return nil, err
	}
	fields["status"] = resp.StatusCode
	t.logger.WithFields(fields).Debug("HTTP请求完成")

	if resp.Header.Get("Content-Encoding") == "gzip" {
		if err := gunzipBody(resp); err != nil {
			t.logger.WithError(err).WithFields(fields).Warn("gzip解压失败，返回原始响应")
		}
	}
	return resp, nil
}

// gunzipBody 用解压流替换响应体，关闭时一并关闭原始连接
func gunzipBody(resp *http.Response) error {
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return err
	}
	resp.Body = &gzipBody{Reader: zr, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

type gzipBody struct {
	*gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Close() error {
	zerr := b.Reader.Close()
	if err := b.raw.Close(); err != nil {
		return err
	}
	return zerr
}
