package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bncbot",
		Short:         "bncbot: BNC account provisioning bot",
		Long:          "bncbot connects to a multi-user relay service, takes BNC account requests from chat, and drives the request/approve/provision workflow against the relay's control panel.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory where BNC state is stored (default: current working directory)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file to read (default: $DATA_DIR/config.toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(opts),
		newStatusCmd(opts),
	)

	return rootCmd
}
