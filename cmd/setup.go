package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	setupHost     string
	setupPort     int
	setupUsername string
	setupPassword string
	setupTLS      bool
)

// setupCmd persists NNTP provider settings to the config file.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the NNTP provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupHost == "" {
			return fmt.Errorf("--host is required")
		}
		v := viper.GetViper()
		v.Set("provider.host", setupHost)
		v.Set("provider.port", setupPort)
		v.Set("provider.use_tls", setupTLS)
		if setupUsername != "" {
			v.Set("provider.username", setupUsername)
		}
		if setupPassword != "" {
			v.Set("provider.password", setupPassword)
		}

		path := v.ConfigFileUsed()
		if path == "" {
			path = "config.yaml"
		}
		if err := v.WriteConfigAs(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Provider %s:%d saved to %s\n", setupHost, setupPort, path)
		return nil
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupHost, "host", "", "NNTP server hostname")
	setupCmd.Flags().IntVar(&setupPort, "port", 119, "NNTP server port")
	setupCmd.Flags().StringVar(&setupUsername, "username", "", "NNTP username")
	setupCmd.Flags().StringVar(&setupPassword, "password", "", "NNTP password")
	setupCmd.Flags().BoolVar(&setupTLS, "tls", false, "connect over TLS")
	rootCmd.AddCommand(setupCmd)
}
