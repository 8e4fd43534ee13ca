package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "botsentry",
	Short: "Supervisor for a git-synced bot process",
	Long: `botsentry keeps a bot process running forever. Each iteration it checks
the bot's git working tree: if clean, it fetches the tracking branch and
hard-resets to it; local modifications are never discarded. Then it runs
the bot to completion and starts over, whatever the exit status was.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.botsentry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// Settings is the effective configuration assembled from viper
type Settings struct {
	RepoPath      string        `yaml:"repo_path"`
	Remote        string        `yaml:"remote"`
	Branch        string        `yaml:"branch"`
	WorkerCommand []string      `yaml:"worker_command"`
	WorkerDir     string        `yaml:"worker_dir"`
	RestartDelay  time.Duration `yaml:"restart_delay"`
	ListenAddr    string        `yaml:"listen_addr"`
	DBPath        string        `yaml:"db_path"`
	HistoryLimit  int           `yaml:"history_limit"`
	LogLevel      string        `yaml:"log_level"`
	LogJSON       bool          `yaml:"log_json"`
}

// initConfig reads in config file and ENV variables if set.
// The defaults run "python bot_main.py" in the current directory against
// origin/main with no restart delay, so a bare `botsentry run` needs no
// configuration at all.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".botsentry")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BOTSENTRY")
	viper.AutomaticEnv()

	viper.SetDefault("repo_path", ".")
	viper.SetDefault("remote", "origin")
	viper.SetDefault("branch", "main")
	viper.SetDefault("worker_command", []string{"python", "bot_main.py"})
	viper.SetDefault("worker_dir", "")
	viper.SetDefault("restart_delay", "0s")
	viper.SetDefault("listen_addr", "127.0.0.1:9105")
	viper.SetDefault("db_path", "botsentry.db")
	viper.SetDefault("history_limit", 1000)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Missing config file is fine: the defaults are a complete configuration
	_ = viper.ReadInConfig()
}

// currentSettings snapshots viper into a Settings struct
func currentSettings() Settings {
	return Settings{
		RepoPath:      viper.GetString("repo_path"),
		Remote:        viper.GetString("remote"),
		Branch:        viper.GetString("branch"),
		WorkerCommand: viper.GetStringSlice("worker_command"),
		WorkerDir:     viper.GetString("worker_dir"),
		RestartDelay:  viper.GetDuration("restart_delay"),
		ListenAddr:    viper.GetString("listen_addr"),
		DBPath:        viper.GetString("db_path"),
		HistoryLimit:  viper.GetInt("history_limit"),
		LogLevel:      viper.GetString("log_level"),
		LogJSON:       viper.GetBool("log_json"),
	}
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
