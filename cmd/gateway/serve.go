package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// serve atende em ln até ctx encerrar. Só retorna depois que Shutdown terminou de
// drenar as requisições em andamento (ou estourou timeout).
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	// Serve devolve ErrServerClosed assim que Shutdown começa
	if serr := <-errc; err == nil && serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		err = serr
	}
	return err
}
