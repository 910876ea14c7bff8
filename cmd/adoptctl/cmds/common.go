package cmds

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/personakit/adoptctl/pkg/bus"
	"github.com/personakit/adoptctl/pkg/catalog"
	"github.com/personakit/adoptctl/pkg/config"
	"github.com/personakit/adoptctl/pkg/engine"
	"github.com/personakit/adoptctl/pkg/linejs"
	"github.com/personakit/adoptctl/pkg/pending"
	"github.com/personakit/adoptctl/pkg/personastore"
	"github.com/personakit/adoptctl/pkg/wizard"
)

// pendingKind names the durable record slot for the template-adopt wizard.
const pendingKind = "template_adopt"

type rootOptions struct {
	Home         string
	Config       string
	PollInterval time.Duration
	Timeout      time.Duration
}

func AddRootFlags(root *cobra.Command) {
	addRootFlags(root.PersistentFlags())
}

func addRootFlags(fs *pflag.FlagSet) {
	fs.String("home", "", "adoptctl home directory (defaults to $ADOPTCTL_HOME or ~/.adoptctl)")
	fs.String("config", "", "Path to config file (defaults to <home>/config.yaml)")
	fs.Duration("poll-interval", 0, "Snapshot poll interval (overrides config)")
	fs.Duration("timeout", 0, "Generator timeout (overrides config)")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	home, err := cmd.Root().PersistentFlags().GetString("home")
	if err != nil {
		return rootOptions{}, err
	}
	if home == "" {
		home, err = config.DefaultHome()
		if err != nil {
			return rootOptions{}, err
		}
	}
	home, err = filepath.Abs(home)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(home)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(home, cfgPath)
	}

	pollInterval, err := cmd.Root().PersistentFlags().GetDuration("poll-interval")
	if err != nil {
		return rootOptions{}, err
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}

	return rootOptions{
		Home:         home,
		Config:       cfgPath,
		PollInterval: pollInterval,
		Timeout:      timeout,
	}, nil
}

// environment bundles everything a command needs: configuration, the event
// bus, the in-process execution surface, and the stores under the adoptctl
// home.
type environment struct {
	Opts         rootOptions
	Cfg          *config.File
	Bus          *bus.Bus
	Surface      *engine.Local
	Pending      pending.Store
	Catalog      *catalog.Store
	Personas     *personastore.Store
	PollInterval time.Duration
	MaxAge       time.Duration
}

// newEnvironment wires the full stack. Jobs started on the surface live on
// baseCtx, so they survive individual command steps but end with the
// process. The caller must Close.
func newEnvironment(cmd *cobra.Command, baseCtx context.Context, gen engine.Generator) (*environment, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Home, 0o755); err != nil {
		return nil, errors.Wrap(err, "create adoptctl home")
	}

	b, err := bus.NewInMemoryBus()
	if err != nil {
		return nil, err
	}

	if gen == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = cfg.GeneratorTimeoutOr(engine.DefaultGeneratorTimeout)
		}
		gen = &engine.CLIGenerator{
			Bin:     cfg.Generator.Bin,
			Args:    cfg.Generator.Args,
			Timeout: timeout,
		}
	}

	var filter engine.LineFilter
	if cfg.LineScript != "" {
		script := cfg.LineScript
		if !filepath.IsAbs(script) {
			script = filepath.Join(opts.Home, script)
		}
		mod, err := linejs.LoadFromFile(script, linejs.Options{})
		if err != nil {
			return nil, errors.Wrap(err, "load line script")
		}
		filter = mod
	}

	personas, err := personastore.Open(cfg.DatabasePath(opts.Home))
	if err != nil {
		return nil, err
	}

	surface := engine.NewLocal(baseCtx, engine.LocalOptions{
		Generator:  gen,
		Personas:   personas,
		Publisher:  b.Publisher,
		LineFilter: filter,
	})

	osFs := afero.NewOsFs()

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = cfg.PollIntervalOr(wizard.DefaultPollInterval)
	}

	return &environment{
		Opts:         opts,
		Cfg:          cfg,
		Bus:          b,
		Surface:      surface,
		Pending:      pending.NewFileStore(osFs, opts.Home, pendingKind),
		Catalog:      catalog.NewStore(osFs, opts.Home),
		Personas:     personas,
		PollInterval: pollInterval,
		MaxAge:       cfg.PendingMaxAgeOr(pending.DefaultMaxAge),
	}, nil
}

func (e *environment) Close() {
	if e.Personas != nil {
		_ = e.Personas.Close()
	}
}

// newWizard builds a wizard bound to this environment and registers its
// stream correlation on the bus.
func (e *environment) newWizard(tpl wizard.TemplateContext) (*wizard.Wizard, error) {
	w, err := wizard.New(tpl, wizard.Options{
		Surface:       e.Surface,
		Pending:       e.Pending,
		PollInterval:  e.PollInterval,
		PendingMaxAge: e.MaxAge,
		UIPublisher:   e.Bus.Publisher,
	})
	if err != nil {
		return nil, err
	}
	w.Attach(e.Bus)
	return w, nil
}
