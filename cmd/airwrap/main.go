package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "airwrap",
		Short: "airwrap drives simulated drones with a pretrained multi-agent recurrent policy.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "airwrap.yaml", "path to the YAML config")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the control loop and read goal commands from stdin",
		RunE:  runControl,
	}

	serveCmd := &cobra.Command{
		Use:   "serve-env",
		Short: "Serve the built-in kinematic environment over gRPC",
		RunE:  serveEnvironment,
	}
	serveCmd.Flags().String("listen", ":50051", "address to listen on")

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
