package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusInfoTerminal(t *testing.T) {
	assert.False(t, StatusInfo{Code: 100}.Terminal())
	assert.False(t, StatusInfo{Code: 200}.Terminal())
	assert.True(t, StatusInfo{Code: 300}.Terminal())
	assert.True(t, StatusInfo{Code: 440}.Terminal())
	assert.True(t, StatusInfo{Code: 500}.Terminal())
}

func TestStatusExtensionsDecode(t *testing.T) {
	payload := []byte(`{
		"code": 440,
		"description": "Duplikat faktury",
		"extensions": {
			"originalKsefNumber": "1111111111-20260829-ABCDEF123456-AB",
			"originalSessionReferenceNumber": "20260829-SO-0987654321-XY"
		}
	}`)

	var status StatusInfo
	require.NoError(t, json.Unmarshal(payload, &status))

	assert.True(t, status.IsDuplicate())
	assert.Equal(t, "1111111111-20260829-ABCDEF123456-AB", status.Extensions.OriginalKsefNumber)
	assert.Equal(t, "20260829-SO-0987654321-XY", status.Extensions.OriginalSessionReferenceNumber)
}

func TestStatusExtensionsSkipsUnknownFields(t *testing.T) {
	payload := []byte(`{
		"originalKsefNumber": "1111111111-20260829-ABCDEF123456-AB",
		"newServerField": {"nested": [1, 2, 3]},
		"anotherOne": true
	}`)

	var ext StatusExtensions
	require.NoError(t, json.Unmarshal(payload, &ext))
	assert.Equal(t, "1111111111-20260829-ABCDEF123456-AB", ext.OriginalKsefNumber)
	assert.Empty(t, ext.OriginalSessionReferenceNumber)
}

func TestSendInvoiceResponseElementRef(t *testing.T) {
	assert.Equal(t, "ref-a", (&SendInvoiceResponse{ReferenceNumber: "ref-a"}).ElementRef())
	assert.Equal(t, "ref-b", (&SendInvoiceResponse{ElementReferenceNumber: "ref-b"}).ElementRef())
	assert.Equal(t, "ref-a", (&SendInvoiceResponse{ReferenceNumber: "ref-a", ElementReferenceNumber: "ref-b"}).ElementRef())
}

func TestChallengeTimeMs(t *testing.T) {
	var challenge ChallengeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"challenge":"x","timestamp":"2026-08-29T10:00:00.000Z"}`), &challenge))
	assert.Equal(t, int64(1787997600000), challenge.ChallengeTimeMs())

	require.NoError(t, json.Unmarshal([]byte(`{"challenge":"x","timestamp":"2026-08-29T10:00:00.000Z","timestampMs":123}`), &challenge))
	assert.Equal(t, int64(123), challenge.ChallengeTimeMs())
}
