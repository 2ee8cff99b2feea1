package service

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/daybookhq/daybook/internal/domain"
)

// Authenticator codes are accepted one period either side of now to absorb
// clock drift between the server and the user's device.
const totpSkew = 1

// TOTPEnrollment is handed back once, at registration. The secret never
// leaves the server again after this.
type TOTPEnrollment struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"` // data URL, PNG
}

// TOTPService generates and verifies authenticator secrets.
type TOTPService struct {
	Issuer string
}

// Enroll generates a fresh secret for the account along with the otpauth
// URI and a QR code the client can render directly.
func (s *TOTPService) Enroll(accountEmail string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: accountEmail,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to encode TOTP QR code: %w", err)
	}

	return TOTPEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Verify checks a six digit code against the user's stored secret.
func (s *TOTPService) Verify(u domain.User, code string) error {
	return s.VerifyAt(u, code, time.Now())
}

// VerifyAt is Verify with an explicit clock, used by tests.
func (s *TOTPService) VerifyAt(u domain.User, code string, at time.Time) error {
	if u.TOTPSecret == nil || *u.TOTPSecret == "" {
		return ErrInvalidTOTP
	}

	valid, err := totp.ValidateCustom(code, *u.TOTPSecret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return ErrInvalidTOTP
	}
	return nil
}
