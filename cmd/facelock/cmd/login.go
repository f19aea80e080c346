package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/facelock/face"
)

var (
	loginUsername string
	loginCapture  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run one authentication attempt from a recorded capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, err := face.LoadCapture(loginCapture)
		if err != nil {
			return err
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		coord, closer, err := openCoordinator(newLogger())
		if err != nil {
			return err
		}
		defer closer()

		prompt := func(ctx context.Context) (string, error) {
			fmt.Fprint(os.Stderr, "Code: ")
			type readResult struct {
				line string
				err  error
			}
			// Read on a goroutine so the attempt deadline can interrupt a
			// stalled stdin read.
			ch := make(chan readResult, 1)
			go func() {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				ch <- readResult{line: line, err: err}
			}()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case r := <-ch:
				if r.err != nil {
					return "", fmt.Errorf("reading code: %w", r.err)
				}
				return strings.TrimSpace(r.line), nil
			}
		}

		grant, err := coord.Login(cmd.Context(), loginUsername, password, face.NewSliceStream(frames), prompt)
		if err != nil {
			return err
		}

		fmt.Printf("Authenticated as %s (grant %s, expires %s)\n",
			grant.Username, grant.ID, grant.ExpiresAt.Format("15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username to authenticate")
	loginCmd.Flags().StringVar(&loginCapture, "capture", "", "Path to the recorded capture file")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("capture")
}
