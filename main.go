package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zerbitx/filegnock/config"
	"github.com/zerbitx/filegnock/encode"
	"github.com/zerbitx/filegnock/evaluate"
	"github.com/zerbitx/filegnock/gnocker"
	"github.com/zerbitx/filegnock/headers"
	"github.com/zerbitx/filegnock/storage"
)

var (
	configFile string
	flagValues config.Env
	asJSON     bool
)

func main() {
	root := &cobra.Command{
		Use:           "filegnock",
		Short:         "Serve mock responses from a directory of .mock files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "yaml file overriding environment settings")
	flags.StringVarP(&flagValues.Mocks, "mocks", "m", "", "path where the mock files are looked up")
	flags.StringVarP(&flagValues.LogLevel, "log-level", "l", "info", "log level")
	root.Flags().StringVar(&flagValues.Host, "host", "127.0.0.1", "host to listen on")
	root.Flags().IntVarP(&flagValues.Port, "port", "p", 8080, "port the mocks are served on")
	root.Flags().IntVar(&flagValues.AdminPort, "admin-port", 8081, "port of the config and metrics endpoints")
	root.Flags().StringVarP(&flagValues.Headers, "headers", "H", "", "comma separated headers used to pick the mock file")
	root.Flags().StringVarP(&flagValues.BodyParser, "body", "b", config.ParserJSON, "request body parser: json, text, raw or urlencoded")

	evalCmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Print a file of the mocks directory with its imports and expressions evaluated",
		Args:  cobra.ExactArgs(1),
		RunE:  evalFile,
	}
	evalCmd.Flags().BoolVar(&asJSON, "json", false, "decode the result as json and pretty print it")
	root.AddCommand(evalCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// settings resolves environment, yaml file and flags, in that order, once at startup
func settings(cmd *cobra.Command) (*config.Env, logrus.FieldLogger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	path := cfg.ConfigFilePath
	if configFile != "" {
		path = configFile
	}
	if err := cfg.Load(path); err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	changed := config.Env{}
	overrides := map[string]func(){
		"mocks":      func() { changed.Mocks = flagValues.Mocks },
		"log-level":  func() { changed.LogLevel = flagValues.LogLevel },
		"host":       func() { changed.Host = flagValues.Host },
		"port":       func() { changed.Port = flagValues.Port },
		"admin-port": func() { changed.AdminPort = flagValues.AdminPort },
		"headers":    func() { changed.Headers = flagValues.Headers },
		"body":       func() { changed.BodyParser = flagValues.BodyParser },
	}
	for name, override := range overrides {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			override()
		}
	}
	cfg.Merge(changed)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(cfg.Level())
	logger.SetReportCaller(cfg.Level() == logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.WithField("level", logger.GetLevel()).Info("log level set")

	return cfg, logger, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := settings(cmd)
	if err != nil {
		return err
	}

	store := storage.New(cfg.Mocks, storage.WithLogger(logger))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	g, err := gnocker.New(store,
		gnocker.WithLogger(logger),
		gnocker.WithHost(cfg.Host),
		gnocker.WithPort(cfg.Port),
		gnocker.WithAdminPort(cfg.AdminPort),
		gnocker.WithConfigBasePath(cfg.ConfigBasePath),
		gnocker.WithBodyParser(cfg.BodyParser),
		gnocker.WithWatchedHeaders(headers.Watched(cfg.Headers)),
		gnocker.WithSettings(cfg),
		gnocker.WithRegistry(reg),
	)
	if err != nil {
		return err
	}

	return g.Start()
}

func evalFile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := settings(cmd)
	if err != nil {
		return err
	}

	store := storage.New(cfg.Mocks, storage.WithLogger(logger))
	evaluator := evaluate.New(store, evaluate.WithLogger(logger))

	if !asJSON {
		content, err := evaluator.File(args[0], nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}

	v, err := evaluator.JSON(args[0], nil)
	if err != nil {
		return err
	}

	return encode.JSONIndented(v, cmd.OutOrStdout())
}
