// Package ksef implementuje klienta API KSeF 2.0: uwierzytelnienie
// (token KSeF lub podpis XAdES), interaktywną sesję wysyłkową z szyfrowaniem
// AES, odpytywanie o status przetwarzania faktur oraz zapytania o metadane.
package ksef

import "github.com/sirupsen/logrus"

var logger = logrus.WithField("component", "ksef.client")
