package common

import (
	"github.com/futig/rag-conversations/internal/config"
	pkgHTTP "github.com/futig/rag-conversations/pkg/http"
	"go.uber.org/zap"
)

const userAgent = "ragchat/1.0"

// NewBaseConnector builds a pkg/http connector from the shared client settings.
// extra options are applied last, so tests can swap the base transport.
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger, extra ...pkgHTTP.HttpOpts) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
		pkgHTTP.WithUserAgent(userAgent),
	}

	return pkgHTTP.NewConnector(connCfg, append(opts, extra...)...)
}
