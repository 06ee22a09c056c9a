package webhookauth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	TimestampHeader = "X-Webhook-Timestamp"
	SignatureHeader = "X-Webhook-Signature"

	Window = 5 * time.Minute

	maxBody = 1 << 20
)

var (
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrTimestampOutsideWindow = errors.New("timestamp outside allowed window")
	ErrInvalidSignature       = errors.New("invalid signature")
)

type Input struct {
	Secret          string
	TimestampHeader string
	SignatureHeader string
	Body            []byte
	Now             time.Time
}

// Verify checks an HMAC-SHA256 hex signature over "<ts>.<body>" and rejects
// timestamps more than Window away from Now.
func Verify(in Input) error {
	tsHeader := strings.TrimSpace(in.TimestampHeader)
	sigHeader := strings.TrimSpace(in.SignatureHeader)

	tsInt, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	ts := time.Unix(tsInt, 0).UTC()

	now := in.Now.UTC()
	if ts.Before(now.Add(-Window)) || ts.After(now.Add(Window)) {
		return ErrTimestampOutsideWindow
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(sigHeader, "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(provided, sign(in.Secret, tsHeader, in.Body)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignHex computes the hex signature for "<ts>.<body>".
func SignHex(secret, timestampHeader string, body []byte) string {
	return hex.EncodeToString(sign(secret, timestampHeader, body))
}

func sign(secret, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// Middleware rejects unsigned or badly signed requests with 401. An empty
// secret disables the check. now is injectable for tests.
func Middleware(secret string, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
			if err != nil {
				http.Error(w, "unable to read body", http.StatusBadRequest)
				return
			}
			r.Body.Close()

			err = Verify(Input{
				Secret:          secret,
				TimestampHeader: r.Header.Get(TimestampHeader),
				SignatureHeader: r.Header.Get(SignatureHeader),
				Body:            body,
				Now:             now(),
			})
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"` + err.Error() + `"}`))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
