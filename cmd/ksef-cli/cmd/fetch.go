package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakturnik/ksef-client/ksef"
)

var (
	fetchOutput       string
	fetchSessionToken string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <numer-ksef>",
	Short: "Pobierz treść faktury po numerze KSeF",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Plik wyjściowy (domyślnie stdout)")
	fetchCmd.Flags().StringVar(&fetchSessionToken, "session-token", "", "Istniejący token sesyjny (pomija logowanie)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := buildCredentials(cfg)
	if err != nil {
		return err
	}
	client := buildClient(creds)
	ctx := cmd.Context()

	sessionToken := fetchSessionToken
	if sessionToken == "" {
		sessionToken, err = authenticate(ctx, creds, client)
		if err != nil {
			return err
		}
	}

	xmlBytes, err := ksef.NewMetadataQueryChannel(client, sessionToken).FetchInvoiceXML(ctx, args[0])
	if err != nil {
		return err
	}

	if fetchOutput == "" {
		_, err = os.Stdout.Write(xmlBytes)
		return err
	}
	if err := os.WriteFile(fetchOutput, xmlBytes, 0o644); err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}
	fmt.Printf("saved %d bytes to %s\n", len(xmlBytes), fetchOutput)
	return nil
}
