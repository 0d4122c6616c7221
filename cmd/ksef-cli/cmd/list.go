package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakturnik/ksef-client/ksef"
	"github.com/fakturnik/ksef-client/ksef/model"
)

var (
	listFrom         string
	listTo           string
	listSubject      string
	listAsJSON       bool
	listSessionToken string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Wypisz metadane faktur z zakresu dat",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listFrom, "from", "", "Początek zakresu (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "Koniec zakresu (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listSubject, "subject", "seller", "Rola: seller (wystawione) albo buyer (otrzymane)")
	listCmd.Flags().BoolVar(&listAsJSON, "json", false, "Wyjście w JSON zamiast tabeli")
	listCmd.Flags().StringVar(&listSessionToken, "session-token", "", "Istniejący token sesyjny (pomija logowanie)")
	_ = listCmd.MarkFlagRequired("from")
	_ = listCmd.MarkFlagRequired("to")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := buildCredentials(cfg)
	if err != nil {
		return err
	}

	from, err := time.Parse("2006-01-02", listFrom)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}
	to, err := time.Parse("2006-01-02", listTo)
	if err != nil {
		return fmt.Errorf("invalid --to date: %w", err)
	}
	// koniec zakresu obejmuje cały dzień
	to = to.Add(24*time.Hour - time.Second)

	subject := model.SubjectSeller
	switch listSubject {
	case "seller":
	case "buyer":
		subject = model.SubjectBuyer
	default:
		return fmt.Errorf("unknown subject %q (allowed: seller, buyer)", listSubject)
	}

	client := buildClient(creds)
	ctx := cmd.Context()

	sessionToken := listSessionToken
	if sessionToken == "" {
		sessionToken, err = authenticate(ctx, creds, client)
		if err != nil {
			return err
		}
	}

	invoices, err := ksef.NewMetadataQueryChannel(client, sessionToken).ListInvoices(ctx, subject, from, to)
	if err != nil {
		return err
	}

	if listAsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(invoices)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KSEF NUMBER\tINVOICE\tDATE\tGROSS\tCURRENCY")
	for _, inv := range invoices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			inv.KsefNumber, inv.InvoiceNumber, inv.InvoicingDate, inv.GrossAmount, inv.Currency)
	}
	return w.Flush()
}
