package email

import (
	"bytes"
	"html/template"
)

const verificationSubject = "Your Daybook verification code"

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
      <h2 style="color: #333333; margin-top: 0;">Verify your sign in</h2>
      <p style="color: #555555;">Use the code below to continue signing in to Daybook:</p>
      <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center; color: #1a73e8; margin: 24px 0;">{{.Code}}</p>
      <p style="color: #888888; font-size: 13px;">This code will expire in {{.ExpiresIn}}. If you did not try to sign in, you can safely ignore this email.</p>
    </div>
  </body>
</html>`))

// RenderVerificationCode produces the subject and HTML body for a one-time
// login code email.
func RenderVerificationCode(code, expiresIn string) (subject, htmlBody string, err error) {
	var buf bytes.Buffer
	err = verificationTmpl.Execute(&buf, struct {
		Code      string
		ExpiresIn string
	}{Code: code, ExpiresIn: expiresIn})
	if err != nil {
		return "", "", err
	}
	return verificationSubject, buf.String(), nil
}
