package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zubr-exchange/zubr-sdk/pkg/exception"
)

// Timestamp is the seconds/nanos wire form of an instant.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanos"`
}

// LoginParams is the loginSessionByApiToken parameter block.
type LoginParams struct {
	APIKey     string    `json:"apiKey"`
	Time       Timestamp `json:"time"`
	HMACDigest string    `json:"hmacDigest"`
}

// LoginMessage builds the string covered by the login digest: the k=v
// pairs in key-sorted order, joined with ";".
func LoginMessage(apiKey string, seconds int64) string {
	return fmt.Sprintf("key=%s;time=%d", apiKey, seconds)
}

// SignLogin computes the login parameter block for the given instant.
// The digest is HMAC-SHA256 over LoginMessage, keyed with the hex-decoded
// API secret, hex encoded.
func SignLogin(apiKey, apiSecret string, now time.Time) (LoginParams, error) {
	key, err := hex.DecodeString(apiSecret)
	if err != nil {
		return LoginParams{}, fmt.Errorf("%w: %w", exception.ErrSecretFormat, err)
	}
	seconds := now.Unix()
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(LoginMessage(apiKey, seconds)))
	return LoginParams{
		APIKey:     apiKey,
		Time:       Timestamp{Seconds: seconds},
		HMACDigest: hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// EncodeLogin builds a signed login frame.
func EncodeLogin(id int64, apiKey, apiSecret string, now time.Time) ([]byte, error) {
	params, err := SignLogin(apiKey, apiSecret, now)
	if err != nil {
		return nil, err
	}
	return EncodeRPC(id, RPCLogin, params)
}
