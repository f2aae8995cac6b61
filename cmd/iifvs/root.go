package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"iifvs/internal/config"
	"iifvs/internal/telemetry"
)

var exit = os.Exit

var (
	cfgFile  string
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "iifvs",
	Short: "IoT firmware vulnerability detection service",
	Long: `iifvs extracts uploaded firmware images with binwalk, inventories the
extracted contents, detects embedded software versions and looks them up in
the NVD CVE database.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. It is called once from main.
func Execute() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newScansCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads the config file and environment, validates them and
// sets up logging.
func initConfig() {
	config.Load(cfgFile)

	if err := config.ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}

	closeLog = telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))
}
