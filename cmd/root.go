/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serial-hunter",
	Short: "Find which serial port a device is hiding behind",
	Long: `serial-hunter answers the question every embedded developer asks after
plugging in a box full of USB-serial adapters: which /dev/tty* is MY device?

It enumerates candidate serial ports, inspects USB metadata from sysfs, and
optionally talks to each port (AT commands, NMEA sentences, custom
challenge/response) to identify the device you are looking for. The classic
unplug-and-replug trick is supported too.

Examples:
  serial-hunter hunt --vid 0403 --pid 6010
  serial-hunter hunt --send "*IDN?" --expect "ACME"
  serial-hunter hunt --replug
  serial-hunter list --table
  serial-hunter watch`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serial-hunter.yaml)")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate used when a command opens a port")

	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.SetDefault("baud", 115200)
	viper.SetDefault("parallelism", 4)
	viper.SetDefault("port-timeout", "5s")
	viper.SetDefault("replug-timeout", "30s")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".serial-hunter" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serial-hunter")
	}

	viper.SetEnvPrefix("SERIAL_HUNTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
