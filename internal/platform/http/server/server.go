// Package server wraps xhttp for the index service.
package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"lastautoindex/internal/app"

	"github.com/Data-Corruption/stdx/xhttp"
)

// New creates the http server for a bootstrapped app and stores it in a.Server.
func New(a *app.App, handler http.Handler) error {
	if a.Config == nil {
		return app.ErrNotBootstrapped
	}
	addr := net.JoinHostPort(a.Config.Host, strconv.Itoa(a.Config.Port))

	var err error
	a.Server, err = xhttp.NewServer(&xhttp.ServerConfig{
		Addr:    addr,
		UseTLS:  false,
		Handler: handler,
		AfterListen: func() {
			fmt.Println("Listening on", a.BaseURL) // for user
			a.Log.Infof("Listening on %s", a.Server.Addr())
		},
		OnShutdown: func() {
			fmt.Println("shutting down, cleaning up resources ...")
			a.Log.Info("Shutting down")
		},
	})
	return err
}
