package telegram

import "github.com/m3rciful/unilinkup/core/telegram/middleware"

// DefaultMiddlewares returns the global chain, outermost first: panic
// recovery, optional update metrics, request logging and reply counting.
// A nil observe leaves update metrics out.
func DefaultMiddlewares(observe func(middleware.UpdateSample)) []Middleware {
	chain := make([]Middleware, 0, 4)
	chain = append(chain, Middleware{Name: "recover", Use: middleware.RecoverMiddleware})
	if observe != nil {
		chain = append(chain, Middleware{Name: "update_metrics", Use: middleware.UpdateMetricsMiddleware(observe)})
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}
