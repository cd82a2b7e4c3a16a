// Package deploy publishes the service container to Azure: build the image in
// Azure Container Registry, point the Web App at it, restart the Web App.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"detectd/internal/execx"
)

const acrSuffix = ".azurecr.io"

// Options names the Azure resources involved in a deployment.
type Options struct {
	Registry      string // ACR name or login server (name.azurecr.io)
	WebApp        string
	ResourceGroup string
	Image         string // repository:tag
	Context       string // docker build context, default "."
	DryRun        bool
	AzBinary      string // default "az"
}

func (o Options) validate() error {
	var err error
	if o.Registry == "" {
		err = multierr.Append(err, fmt.Errorf("registry is required"))
	}
	if o.WebApp == "" {
		err = multierr.Append(err, fmt.Errorf("webapp is required"))
	}
	if o.ResourceGroup == "" {
		err = multierr.Append(err, fmt.Errorf("resource group is required"))
	}
	if o.Image == "" || strings.ContainsAny(o.Image, " \t") {
		err = multierr.Append(err, fmt.Errorf("image %q is not a valid repository:tag", o.Image))
	}
	return err
}

// registryName strips the ACR login-server suffix.
func registryName(r string) string {
	r = strings.TrimPrefix(strings.TrimPrefix(r, "https://"), "http://")
	return strings.TrimSuffix(strings.ToLower(r), acrSuffix)
}

// Plan returns the Azure CLI steps for o, in execution order.
func Plan(o Options) ([]execx.Cmd, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	az := o.AzBinary
	if az == "" {
		az = "az"
	}
	buildCtx := o.Context
	if buildCtx == "" {
		buildCtx = "."
	}
	name := registryName(o.Registry)
	server := name + acrSuffix
	return []execx.Cmd{
		{Path: az, Args: []string{"acr", "build", "--registry", name, "--image", o.Image, buildCtx}},
		{Path: az, Args: []string{"webapp", "config", "container", "set",
			"--name", o.WebApp,
			"--resource-group", o.ResourceGroup,
			"--docker-custom-image-name", server + "/" + o.Image,
			"--docker-registry-server-url", "https://" + server}},
		{Path: az, Args: []string{"webapp", "restart", "--name", o.WebApp, "--resource-group", o.ResourceGroup}},
	}, nil
}

// Run executes the plan step by step, stopping at the first failure. With
// DryRun the steps are only logged.
func Run(ctx context.Context, r execx.Runner, o Options, log zerolog.Logger) error {
	steps, err := Plan(o)
	if err != nil {
		return err
	}
	log.Info().Str("webapp", o.WebApp).Str("registry", o.Registry).Str("image", o.Image).Bool("dry_run", o.DryRun).Msg("deploying to Azure Web App")
	for i, c := range steps {
		ev := log.Info().Int("step", i+1).Int("of", len(steps)).Str("cmd", c.String())
		if o.DryRun {
			ev.Msg("dry run")
			continue
		}
		ev.Msg("running")
		if err := r.Run(ctx, c); err != nil {
			return fmt.Errorf("deploy step %d (%s): %w", i+1, strings.Join(c.Args[:2], " "), err)
		}
	}
	log.Info().Msg("deployment completed")
	return nil
}
