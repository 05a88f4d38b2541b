package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	actx "github.com/quantaphp/http-endpoint/app/context"
	"github.com/quantaphp/http-endpoint/web/server"
)

// The Routes command lists the routes served by the web server.
type Routes struct{}

// Run the routes command.
func (c *Routes) Run(appCtx *actx.Context) error {
	r := server.NewRouter(appCtx, appCtx.Logger, prometheus.NewRegistry())
	routes, err := server.Routes(r)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	data := make([][]string, len(routes))
	for i, route := range routes {
		data[i] = []string{route.Name, strings.Join(route.Methods, ","), route.Path}
	}

	if err = renderTable([]string{"Name", "Methods", "Path"}, data, appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering routes: %w", err)
	}

	return nil
}
