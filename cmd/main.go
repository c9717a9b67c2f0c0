package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-signal-engine",
	Short: "A CLI for managing the Stock Signal Engine services",
	Long:  `Stock Signal Engine generates retail trading signals and evaluates their realized outcomes...`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
