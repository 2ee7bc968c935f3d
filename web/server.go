package web

import (
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// NewServer creates and configures the rweb server for the companion API.
func NewServer() *rweb.Server {
	s := rweb.NewServer(rweb.ServerOptions{
		Address: ":8000",
		Verbose: true,
	})

	applyMiddleware(s)
	setupRoutes(s)

	return s
}

// NewTestServer creates a server with caller-supplied options (dynamic port,
// ready channel) for integration tests.
func NewTestServer(opts rweb.ServerOptions) *rweb.Server {
	s := rweb.NewServer(opts)
	applyMiddleware(s)
	setupRoutes(s)
	return s
}

func applyMiddleware(s *rweb.Server) {
	s.Use(rweb.RequestInfo)
	s.Use(CorsMiddleware)
	s.Use(SecurityHeadersMiddleware)
	s.Use(JWTAuthMiddleware)
	s.Use(LoggingMiddleware)
}

// Run starts the server.
func Run(s *rweb.Server) error {
	logger.Info("FitTrack API starting")
	return s.Run()
}
