package model

import (
	"github.com/go-faster/jx"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "ksef.model")

// ProcessingCodeDuplicate serwer wykrył ponowną wysyłkę już przyjętej
// faktury; rozszerzenia statusu wskazują oryginalny numer KSeF.
const ProcessingCodeDuplicate = 440

// StatusInfo kod i opis przetwarzania zwracany w wielu odpowiedziach KSeF.
type StatusInfo struct {
	Code        int              `json:"code"`
	Description string           `json:"description"`
	Extensions  StatusExtensions `json:"extensions,omitempty"`
}

// Terminal zwraca true dla kodów kończących przetwarzanie (>= 300).
func (s StatusInfo) Terminal() bool { return s.Code >= 300 }

// IsDuplicate rozpoznaje kod duplikatu.
func (s StatusInfo) IsDuplicate() bool { return s.Code == ProcessingCodeDuplicate }

// StatusExtensions rozszerzenia statusu dla przypadku duplikatu. Schemat
// tych pól dryfował między wersjami API, więc dekodujemy je defensywnie:
// znane pola jawnie, nieznane z logiem debug zamiast cichego pominięcia.
type StatusExtensions struct {
	OriginalKsefNumber             string
	OriginalSessionReferenceNumber string
}

func (e *StatusExtensions) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "originalKsefNumber":
			v, err := d.Str()
			if err != nil {
				return err
			}
			e.OriginalKsefNumber = v
		case "originalSessionReferenceNumber":
			v, err := d.Str()
			if err != nil {
				return err
			}
			e.OriginalSessionReferenceNumber = v
		default:
			logger.WithField("field", key).Debug("unknown status extension field, skipping")
			if err := d.Skip(); err != nil {
				return err
			}
		}
		return nil
	})
}
