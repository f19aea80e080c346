package totp

import (
	"net/url"
	"strconv"

	"github.com/jmcleod/facelock/internal/util"
)

const (
	// Issuer is the label authenticator apps display for enrolled accounts.
	Issuer = "FaceLock"

	backupCodeCount  = 10
	backupCodeDigits = 8
)

// ProvisioningURL builds the otpauth:// URL an authenticator app imports,
// usually rendered as a QR code at enrollment.
func ProvisioningURL(secret, account string) string {
	label := url.PathEscape(Issuer + ":" + account)
	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", Issuer)
	values.Set("algorithm", "SHA1")
	values.Set("digits", strconv.Itoa(Digits))
	values.Set("period", strconv.Itoa(Period))
	return "otpauth://totp/" + label + "?" + values.Encode()
}

// GenerateBackupCodes returns single-use recovery codes in XXXX-XXXX form,
// for users who lose their authenticator device.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		digits, err := util.RandomDigits(backupCodeDigits)
		if err != nil {
			return nil, err
		}
		codes[i] = digits[:4] + "-" + digits[4:]
	}
	return codes, nil
}
