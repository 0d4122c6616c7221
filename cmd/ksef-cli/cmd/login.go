package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Uwierzytelnij się i wypisz token sesyjny",
	Long: `Przeprowadza pełny przepływ uwierzytelnienia (challenge, inicjacja,
aktywacja, wykup tokenu) i wypisuje token sesyjny na stdout. Token można
przekazać kolejnym wywołaniom przez --session-token.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := buildCredentials(cfg)
	if err != nil {
		return err
	}

	token, err := authenticate(cmd.Context(), creds, buildClient(creds))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
