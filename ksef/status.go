package ksef

import (
	"context"
	"net/http"
	"time"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/model"
)

// OutcomeKind klasyfikuje wynik przetwarzania faktury w sesji.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeDuplicate
	OutcomeFailure
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeDuplicate:
		return "DUPLICATE"
	case OutcomeFailure:
		return "FAILURE"
	case OutcomeTimedOut:
		return "TIMED_OUT"
	}
	return "UNKNOWN"
}

// SubmissionOutcome końcowy (lub czasowo nierozstrzygnięty) wynik wysyłki.
// Duplikat jest traktowany jak sukces: faktura jest w KSeF, a pola wskazują
// jej pierwotny numer i sesję.
type SubmissionOutcome struct {
	Kind OutcomeKind

	KsefNumber    string
	InvoicingDate string
	UpoURL        string

	// Dla OutcomeDuplicate: sesja, w której faktura została pierwotnie przyjęta.
	OriginalSessionReference string

	StatusCode  int
	Description string
}

// Accepted zwraca true, gdy faktura jest w KSeF (świeżo przyjęta albo duplikat).
func (o *SubmissionOutcome) Accepted() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeDuplicate
}

const statusPollInterval = 2 * time.Second

// StatusPoller odpytuje o status przetwarzania faktur wysłanych w sesji
// interaktywnej. Wyczerpanie budżetu czasowego jest zwykłym wynikiem
// (OutcomeTimedOut), nie błędem: przetwarzanie może zakończyć się po terminie
// i wtedy rozstrzygnięcie przyniesie kolejne wywołanie.
type StatusPoller struct {
	client       *api.Client
	sessionToken string
	interval     time.Duration
}

func NewStatusPoller(client *api.Client, sessionToken string) *StatusPoller {
	return &StatusPoller{client: client, sessionToken: sessionToken, interval: statusPollInterval}
}

// WithPollInterval nadpisuje interwał odpytywania, przydatne w testach.
func (p *StatusPoller) WithPollInterval(interval time.Duration) *StatusPoller {
	p.interval = interval
	return p
}

// AwaitOutcome odpytuje o status elementu aż do rozstrzygnięcia albo upływu
// timeout. Po terminie nie wychodzi już żadne żądanie.
func (p *StatusPoller) AwaitOutcome(ctx context.Context, sessionRef, elementRef string, timeout time.Duration) (*SubmissionOutcome, error) {
	if p.sessionToken == "" {
		return nil, ErrNoSessionToken
	}

	deadline := time.Now().Add(timeout)
	for {
		outcome, err := p.Check(ctx, sessionRef, elementRef)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := p.interval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if time.Now().After(deadline) {
			break
		}
	}

	logger.WithField("element", elementRef).Warn("processing still pending at deadline")
	return &SubmissionOutcome{Kind: OutcomeTimedOut, Description: "processing not finished before deadline"}, nil
}

// Check wykonuje pojedyncze odpytanie. Zwraca nil, gdy przetwarzanie trwa
// albo serwer odpowiedział przejściowym błędem.
func (p *StatusPoller) Check(ctx context.Context, sessionRef, elementRef string) (*SubmissionOutcome, error) {
	var status model.InvoiceStatusResponse
	endpoint := "/sessions/" + sessionRef + "/invoices/" + elementRef
	resp, err := p.client.GetJSON(ctx, endpoint, p.sessionToken, &status)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		// przejściowe błędy serwera nie przerywają odpytywania
		logger.WithField("status", resp.Status).Warn("invoice status check failed, retrying")
		return nil, nil
	}

	// Obecność numeru KSeF rozstrzyga o przyjęciu niezależnie od kodu.
	if status.KsefNumber != "" {
		return &SubmissionOutcome{
			Kind:          OutcomeSuccess,
			KsefNumber:    status.KsefNumber,
			InvoicingDate: status.InvoicingDate,
			UpoURL:        status.UpoDownloadUrl,
			StatusCode:    status.Status.Code,
			Description:   status.Status.Description,
		}, nil
	}

	if status.Status.IsDuplicate() {
		return p.recoverDuplicate(ctx, &status)
	}

	if status.Status.Terminal() {
		logger.WithField("code", status.Status.Code).Warn("invoice rejected")
		return &SubmissionOutcome{
			Kind:        OutcomeFailure,
			StatusCode:  status.Status.Code,
			Description: status.Status.Description,
		}, nil
	}
	return nil, nil
}

// recoverDuplicate odczytuje z rozszerzeń statusu numer pierwotnej faktury.
// Link do UPO pierwotnej sesji dociągany jest best-effort; jego brak nie
// zmienia rozstrzygnięcia.
func (p *StatusPoller) recoverDuplicate(ctx context.Context, status *model.InvoiceStatusResponse) (*SubmissionOutcome, error) {
	ext := status.Status.Extensions
	if ext.OriginalKsefNumber == "" {
		logger.Warn("duplicate status without original ksef number")
		return &SubmissionOutcome{
			Kind:        OutcomeFailure,
			StatusCode:  status.Status.Code,
			Description: status.Status.Description,
		}, nil
	}

	outcome := &SubmissionOutcome{
		Kind:                     OutcomeDuplicate,
		KsefNumber:               ext.OriginalKsefNumber,
		OriginalSessionReference: ext.OriginalSessionReferenceNumber,
		StatusCode:               status.Status.Code,
		Description:              status.Status.Description,
	}

	if ext.OriginalSessionReferenceNumber != "" {
		common, err := p.CommonStatus(ctx, ext.OriginalSessionReferenceNumber)
		if err != nil {
			logger.WithError(err).Warn("could not fetch UPO link for duplicate")
		} else {
			outcome.UpoURL = common.UpoUrl
		}
	}

	logger.WithField("ksef_number", outcome.KsefNumber).Info("duplicate recovered to original invoice")
	return outcome, nil
}

// CommonStatus pobiera status operacji po numerze referencyjnym, razem
// z linkiem do UPO.
func (p *StatusPoller) CommonStatus(ctx context.Context, referenceNumber string) (*model.CommonStatusResponse, error) {
	var status model.CommonStatusResponse
	resp, err := p.client.GetJSON(ctx, "/common/Status/"+referenceNumber, p.sessionToken, &status)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &FetchError{Operation: "common status", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	return &status, nil
}
