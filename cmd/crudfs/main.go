// Command crudfs is the command-line client for a crudfs volume: it formats
// volumes and moves files in and out of them over the object-store protocol.
package main

import (
	"fmt"
	"os"

	"github.com/objectstream/crudfs/clients/library"
	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     config.Config
	ls      log_service.LogService
)

var rootCmd = &cobra.Command{
	Use:   "crudfs",
	Short: "Client for a crudfs object-store volume",
	Long:  `crudfs maps named files onto opaque objects held by a remote CRUD object store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
		}

		cfg = config.DefaultConfig()
		if err := viper.Unmarshal(&cfg); err != nil {
			return err
		}

		ls = logruslog.NewLogrusLogService("crudfs", cfg.LogLevel)
		return nil
	},
}

func newClient() *crudlib.Client {
	return crudlib.NewClient(cfg, ls)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("address", config.DefaultAddress, "object store address")
	rootCmd.PersistentFlags().Int("port", config.DefaultPort, "object store port")
	rootCmd.PersistentFlags().Int("max-files", 0, "directory slot capacity")
	rootCmd.PersistentFlags().String("log-level", "INFO", "minimum log level")

	viper.SetEnvPrefix("CRUDFS")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("address", rootCmd.PersistentFlags().Lookup("address"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("max_files", rootCmd.PersistentFlags().Lookup("max-files"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}
