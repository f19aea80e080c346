package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facelock",
	Short: "FaceLock is an offline biometric authentication service",
	Long: `An offline local authentication service combining password verification,
live face recognition with anti-spoofing, and time-based one-time codes.
All credentials stay encrypted on the local machine.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
