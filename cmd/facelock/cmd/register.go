package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmcleod/facelock/face"
)

var (
	registerUsername string
	registerCapture  string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Enroll a new user from a recorded capture",
	Long: `Enrolls a new user: verifies liveness on the recorded capture, stores the
encrypted face samples and password hash, and prints the one-time TOTP
provisioning data. The secret and backup codes are shown exactly once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, err := face.LoadCapture(registerCapture)
		if err != nil {
			return err
		}

		password, err := promptNewPassword()
		if err != nil {
			return err
		}

		coord, closer, err := openCoordinator(newLogger())
		if err != nil {
			return err
		}
		defer closer()

		enr, err := coord.Register(cmd.Context(), registerUsername, password, face.NewSliceStream(frames))
		if err != nil {
			return err
		}

		fmt.Println("Enrollment complete. Add this secret to your authenticator app now;")
		fmt.Println("it will not be shown again.")
		fmt.Printf("\n  Secret:  %s\n  URI:     %s\n\nBackup codes (single use):\n", enr.Secret, enr.ProvisioningURI)
		for _, code := range enr.BackupCodes {
			fmt.Printf("  %s\n", code)
		}
		return nil
	},
}

func promptNewPassword() (string, error) {
	first, err := promptPassword("Password: ")
	if err != nil {
		return "", err
	}
	second, err := promptPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if strings.TrimSpace(first) == "" {
		return "", errors.New("password required")
	}
	return first, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username to enroll")
	registerCmd.Flags().StringVar(&registerCapture, "capture", "", "Path to the recorded capture file")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("capture")
}
