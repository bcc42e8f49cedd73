// Package label encodes jar identities into the payload printed on QR
// labels and recognizes them again when scanned.
package label

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
)

// PayloadType tags payloads produced by Encode so that QR codes from other
// applications are not mistaken for jar labels.
const PayloadType = "jartrack-jar"

const maxPayloadLen = 256

type payload struct {
	Type string          `json:"type"`
	ID   json.RawMessage `json:"id"`
}

// Encode returns the label payload for jarID.
func Encode(jarID int64) string {
	return `{"type":"` + PayloadType + `","id":` + strconv.FormatInt(jarID, 10) + `}`
}

// Decode extracts the jar id from a scanned payload. It reports false for
// anything that is not a well-formed jar label, including payloads from
// other applications.
func Decode(raw string) (int64, bool) {
	if len(raw) == 0 || len(raw) > maxPayloadLen {
		return 0, false
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var p payload
	if err := dec.Decode(&p); err != nil {
		return 0, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return 0, false
	}
	if p.Type != PayloadType {
		return 0, false
	}

	// A quoted or fractional id fails to parse here.
	id, err := strconv.ParseInt(string(p.ID), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
