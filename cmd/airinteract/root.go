package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayusman/airinteract/internal/config"
)

type options struct {
	v          *viper.Viper
	configFile string
	noTray     bool
	noServer   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	root := &cobra.Command{
		Use:           "airinteract",
		Short:         "Control your computer with hand gestures",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default ./airinteract.yaml or ~/.airinteract/airinteract.yaml)")
	flags.Int("cam", 0, "camera device index")
	flags.String("mode", "general", "control profile: general, presentation or racing")
	flags.Bool("strict", false, "panic on internal invariant violations")
	flags.String("addr", "", "status server address")
	flags.BoolVar(&opts.noTray, "no-tray", false, "do not show the tray icon")
	flags.BoolVar(&opts.noServer, "no-server", false, "do not start the status server")

	for key, name := range map[string]string{
		"camera.index": "cam",
		"mode":         "mode",
		"strict":       "strict",
		"server.addr":  "addr",
	} {
		if err := opts.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(newRunCmd(opts), newConfigCmd(opts), newVersionCmd())
	return root
}

// load reads the configuration with command-line overrides applied.
func (o *options) load() (*config.Config, error) {
	if o.noTray {
		o.v.Set("tray.enabled", false)
	}
	if o.noServer {
		o.v.Set("server.enabled", false)
	}
	return config.Load(o.v, o.configFile)
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return config.Dump(cfg, cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "airinteract", version)
		},
	}
}
