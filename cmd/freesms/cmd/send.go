package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/freesms-notify/internal/client"
	"github.com/LeventeLantos/freesms-notify/internal/config"
	"github.com/LeventeLantos/freesms-notify/internal/logging"
	"github.com/LeventeLantos/freesms-notify/internal/model"
	"github.com/LeventeLantos/freesms-notify/internal/service"
)

var (
	sendUser    string
	sendToken   string
	sendAPIURL  string
	sendTimeout time.Duration
	sendJSON    bool
	sendVerbose bool
)

// ErrNotDelivered is returned when the endpoint answered with anything but
// success, so the process exits non-zero.
var ErrNotDelivered = errors.New("sms not delivered")

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one SMS and print the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := resolveCredentials()
		if err != nil {
			return err
		}

		level := "warn"
		if sendVerbose {
			level = "debug"
		}
		logger := logging.New(cmd.ErrOrStderr(), level, "text")

		c := client.NewFreeClient(sendAPIURL, sendTimeout)
		d := service.NewDispatcher(c, creds).WithLogger(logger)

		res, err := d.Send(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if err := printResult(cmd, res); err != nil {
			return err
		}
		if !res.Outcome.IsSuccess() {
			return fmt.Errorf("%w: %s", ErrNotDelivered, res.Outcome)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendUser, "user", "", "Free Mobile user id (defaults to FREESMS_USER)")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "API access token (defaults to FREESMS_PASS)")
	sendCmd.Flags().StringVar(&sendAPIURL, "api-url", config.DefaultAPIURL, "SMS API endpoint")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "HTTP timeout")
	sendCmd.Flags().BoolVar(&sendJSON, "json", false, "Print the result as JSON")
	sendCmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Log the request")
}

func resolveCredentials() (model.Credentials, error) {
	user, token, err := config.LoadCredentials(sendUser, sendToken)
	if err != nil {
		return model.Credentials{}, err
	}
	return model.Credentials{Username: user, AccessToken: token}, nil
}

func printResult(cmd *cobra.Command, res model.Result) error {
	out := cmd.OutOrStdout()

	if sendJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	_, err := fmt.Fprintf(out, "%s: %s\n", res.Outcome, res.Outcome.Description())
	return err
}
