package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event signature errors returned by Verify.
var (
	ErrSignatureMalformed = errors.New("malformed event signature")
	ErrSignatureMismatch  = errors.New("event signature mismatch")
	ErrSignatureExpired   = errors.New("event signature outside tolerance")
)

// HMACEventSigner implements ports.SignatureService. Signatures have the form
// t=<unix seconds>,v1=<hex HMAC-SHA256 of "<t>.<payload>">.
type HMACEventSigner struct {
	secret    []byte
	tolerance time.Duration
}

// NewHMACEventSigner creates a signer. A zero tolerance disables the age check in Verify.
func NewHMACEventSigner(secret string, tolerance time.Duration) *HMACEventSigner {
	return &HMACEventSigner{secret: []byte(secret), tolerance: tolerance}
}

// Sign returns the signature header value for payload sent at at.
func (s *HMACEventSigner) Sign(payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, s.mac(ts, payload))
}

// Verify checks header against payload. now is compared with the signed timestamp.
func (s *HMACEventSigner) Verify(payload []byte, header string, now time.Time) error {
	var (
		ts  int64
		sig string
		err error
	)
	for _, field := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			return ErrSignatureMalformed
		}
		switch k {
		case "t":
			if ts, err = strconv.ParseInt(v, 10, 64); err != nil {
				return ErrSignatureMalformed
			}
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return ErrSignatureMalformed
	}

	if !hmac.Equal([]byte(sig), []byte(s.mac(ts, payload))) {
		return ErrSignatureMismatch
	}
	if s.tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > s.tolerance || age < -s.tolerance {
			return ErrSignatureExpired
		}
	}
	return nil
}

func (s *HMACEventSigner) mac(ts int64, payload []byte) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(strconv.FormatInt(ts, 10)))
	m.Write([]byte{'.'})
	m.Write(payload)
	return hex.EncodeToString(m.Sum(nil))
}
