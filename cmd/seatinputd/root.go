package main

import (
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	quirksPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "seatinputd",
	Short: "Dispatches evdev input through the seatinput core onto a virtual pointer/keyboard",
	Long: `seatinputd discovers kernel input devices, runs them through the
fallback and touchpad dispatch state machines, and re-emits the resulting
pointer/keyboard/switch events onto a uinput virtual device. It is a
demonstration harness for the seatinput core, not a compositor.`,
}

// Execute runs the root command; main's sole job is to call this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/seatinputd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&quirksPath, "quirks", "", "quirk database YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	_ = viper.BindPFlag("quirks_file", rootCmd.PersistentFlags().Lookup("quirks"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listDevicesCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Join(home, ".config", "seatinputd"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SEATINPUTD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "seatinputd: using config file", viper.ConfigFileUsed())
	}
}

func parseLogLevel(s string) charmlog.Level {
	switch s {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
