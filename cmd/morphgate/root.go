package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/morphgate/internal/pathutil"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "morphgate",
		Short:         "Governance gateway for agent responses and tool calls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.morphgate/config.yaml)")
	cmd.PersistentFlags().String("endpoint", "", "review service endpoint")
	cmd.PersistentFlags().String("api-key", "", "review service API key")
	_ = viper.BindPFlag("review.endpoint", cmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("review.api_key", cmd.PersistentFlags().Lookup("api-key"))

	cmd.AddCommand(newReviewCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newAuditCmd())
	return cmd
}

func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("MORPHGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("review.request_timeout", "30s")
	viper.SetDefault("review.poll_interval", "5s")
	viper.SetDefault("review.wait_timeout", "10m")

	if strings.TrimSpace(cfgFile) != "" {
		viper.SetConfigFile(pathutil.ExpandHomePath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			viper.AddConfigPath(home + "/.morphgate")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; flags and env may carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && strings.TrimSpace(cfgFile) != "" {
			return err
		}
	}
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
