package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
	"github.com/quantaphp/http-endpoint/web/endpoint"
	"github.com/quantaphp/http-endpoint/web/server"
	stypes "github.com/quantaphp/http-endpoint/web/server/types"
)

// Serve starts the web server.
type Serve struct {
	Address string `arg:"" optional:"" help:"[host]:port to listen on. Defaults to the configured address."`
	//nolint:lll // Long struct tags are unavoidable.
	ErrorLevel stypes.ErrorLevel `help:"Detail level of error messages returned to clients. This doesn't affect response status codes. Overrides the configured value. Valid values: none, minimal, full \n none: only the status text; minimal: the outermost error message; full: the complete error message"`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	var opts []endpoint.Option
	if c.ErrorLevel != "" {
		opts = append(opts, endpoint.WithErrorLevel(c.ErrorLevel))
	}

	srv := server.New(appCtx, c.Address, opts...)

	// Gracefully shutdown the server if a process signal is received, or the
	// main context is done.
	srvDone := make(chan error)
	go func() {
		srvErr := srv.ListenAndServe()
		appCtx.Logger.Debug("web server shutdown")
		srvDone <- srvErr
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		appCtx.Logger.Debug("process received signal", "signal", s)
	case <-appCtx.Ctx.Done():
		appCtx.Logger.Debug("app context is done")
	case srvErr := <-srvDone:
		if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			return aerrors.NewWithCause("web server error", srvErr, "address", c.Address)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), appCtx.Config.Server.ShutdownTimeout.V)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed shutting down web server: %w", err)
	}
	<-srvDone

	return nil
}
