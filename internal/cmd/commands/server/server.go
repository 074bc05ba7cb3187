package server

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/edforge/trellis/internal/cmd/base"
	"github.com/edforge/trellis/internal/config"
	httpserver "github.com/edforge/trellis/internal/server"
	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/authentication"
	"github.com/edforge/trellis/pkg/authorization"
	"github.com/edforge/trellis/pkg/backend"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/pipeline/middleware"
	"github.com/edforge/trellis/pkg/profile"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Run the API gateway server"
}

func (c *Command) Help() string {
	return `Usage: trellis server -config=config.hcl

  Run the API gateway. Every request passes through the middleware
  pipeline: authentication, path and body parsing, schema validation,
  authorization, profile filtering, and finally document storage.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("server", flag.ExitOnError))
	f.StringVar(
		&c.flagConfig, "config", "config.hcl",
		"Path to configuration file",
	)
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "trellis",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	executor, err := buildExecutor(ctx, cfg, log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	srv := httpserver.New(cfg.ListenAddress, executor, log)
	log.Info("starting server", "address", cfg.ListenAddress)
	if err := srv.ListenAndServe(ctx); err != nil {
		c.UI.Error(fmt.Sprintf("server error: %v", err))
		return 1
	}

	log.Info("server stopped")
	return 0
}

// buildExecutor wires the pipeline collaborators from configuration.
func buildExecutor(
	ctx context.Context, cfg *config.Config, log hclog.Logger,
) (*pipeline.Executor, error) {
	fs := afero.NewOsFs()

	provider := apischema.NewProvider(func(context.Context) (*apischema.Document, error) {
		return apischema.LoadFile(fs, cfg.SchemaPath)
	}, log)
	if _, err := provider.Reload(ctx); err != nil {
		return nil, fmt.Errorf("error loading api schema: %w", err)
	}

	var claimSets []authorization.ClaimSet
	if cfg.ClaimSetsPath != "" {
		loaded, err := authorization.LoadClaimSets(fs, cfg.ClaimSetsPath)
		if err != nil {
			return nil, fmt.Errorf("error loading claim sets: %w", err)
		}
		claimSets = loaded
		log.Info("loaded claim sets", "count", len(claimSets))
	} else {
		log.Warn("no claim sets configured; every request will be denied")
	}

	profiles := map[string]map[string]*profile.ResourceProfile{}
	if cfg.ProfilesPath != "" {
		loaded, err := profile.LoadFile(fs, cfg.ProfilesPath)
		if err != nil {
			return nil, fmt.Errorf("error loading profiles: %w", err)
		}
		profiles = loaded
	}

	secret := os.Getenv(cfg.JWT.SecretEnv)
	if secret == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.JWT.SecretEnv)
	}

	steps := middleware.NewDefaultChain(middleware.ChainOptions{
		SchemaProvider:  provider,
		TokenValidator:  authentication.NewJWTValidator([]byte(secret), cfg.JWT.Audience, log),
		ProfileResolver: profile.NewRegistry(profiles, log),
		Decider: authorization.NewDecider(
			authorization.NewStaticClaimSetProvider(claimSets),
			authorization.NewStrategyRegistry(),
			log,
		),
		Store:       backend.NewMemoryStore(),
		MaxPageSize: cfg.MaxPageSize,
		Logger:      log,
	})

	return pipeline.NewExecutor(steps, log), nil
}
