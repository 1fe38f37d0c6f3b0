package server

import (
	"fmt"
	"net/http"

	zl "github.com/rs/zerolog/log"
)

// Version is the server version.
const Version = "1.0.0"

var defaultPort = 8080

var onStop = func() {}

// Server serves requests.
type Server struct {
	cfg     Config
	handler http.Handler
}

// Handler handles one request.
type Handler interface {
	Serve() error
}

// Start starts the server.
func (s *Server) Start() error {
	var local int
	fmt.Println(local)
	zl.Info().Msg("start")
	helper()
	return nil
}

func helper() {}
