package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakturnik/ksef-client/ksef"
)

var (
	sendOffline      bool
	sendSessionToken string
	sendTimeout      time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send [pliki...]",
	Short: "Wyślij faktury XML w sesji interaktywnej",
	Long: `Otwiera sesję interaktywną, wysyła każdą fakturę zaszyfrowaną kluczem
sesji i czeka na rozstrzygnięcie przetwarzania. Duplikat jest raportowany
jako przyjęcie z pierwotnym numerem KSeF.

Z flagą --offline faktury nie są wysyłane: generowana jest syntetyczna
referencja, a rekord jest oznaczony jako symulowany.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolVar(&sendOffline, "offline", false, "Tryb symulowany, bez sesji KSeF")
	sendCmd.Flags().StringVar(&sendSessionToken, "session-token", "", "Istniejący token sesyjny (pomija logowanie)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 2*time.Minute, "Budżet czasu na rozstrzygnięcie statusu")
}

func runSend(cmd *cobra.Command, args []string) error {
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

	sessionToken := sendSessionToken
	if !sendOffline && sessionToken == "" {
		sessionToken, err = authenticate(ctx, creds, client)
		if err != nil {
			return err
		}
	}

	keyCache := ksef.NewPublicKeyCache(client)
	channel := ksef.NewSubmissionChannel(client, keyCache, creds.Nip, sessionToken)
	defer channel.Close()

	for _, file := range args {
		payload, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("cannot read invoice file %s: %w", file, err)
		}

		record, err := channel.Submit(ctx, payload)
		if err != nil {
			return fmt.Errorf("submit %s: %w", file, err)
		}
		if record.Simulated {
			fmt.Printf("%s: SIMULATED reference=%s\n", file, record.ElementReference)
			continue
		}

		poller := ksef.NewStatusPoller(client, sessionToken)
		outcome, err := poller.AwaitOutcome(ctx, record.SessionReference, record.ElementReference, sendTimeout)
		if err != nil {
			return fmt.Errorf("status %s: %w", file, err)
		}

		switch outcome.Kind {
		case ksef.OutcomeSuccess:
			fmt.Printf("%s: ACCEPTED ksef=%s upo=%s\n", file, outcome.KsefNumber, outcome.UpoURL)
		case ksef.OutcomeDuplicate:
			fmt.Printf("%s: DUPLICATE ksef=%s (original session %s)\n", file, outcome.KsefNumber, outcome.OriginalSessionReference)
		case ksef.OutcomeTimedOut:
			fmt.Printf("%s: PENDING element=%s (check again later)\n", file, record.ElementReference)
		default:
			return fmt.Errorf("%s rejected: code %d: %s", file, outcome.StatusCode, outcome.Description)
		}
	}
	return nil
}
