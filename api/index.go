package handler

import (
	"net/http"
	"sync"

	"meetroom/config"
	"meetroom/di"
	"meetroom/shared/logger"
	transport "meetroom/transport/http"
)

var (
	server *transport.HTTP
	once   sync.Once
)

// Handler is the serverless entrypoint. The service graph is built on the first invocation
// and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg)

		server = di.InitializeService()
	})

	server.ServeHTTP(w, r)
}
