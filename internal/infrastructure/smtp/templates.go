package smtp

import (
	"bytes"
	"html/template"
)

var verifyProfileTmpl = template.Must(template.New("verifyProfile").Parse(`<html>
<body>
	<p>Hi {{.Name}},</p>
	<p>Please click the link below to verify your account.</p>
	<p><a href="{{.Link}}">Verify your account</a></p>
	<p>If you did not sign up, you can safely ignore this email.</p>
</body>
</html>`))

var requestResetPasswordTmpl = template.Must(template.New("requestResetPassword").Parse(`<html>
<body>
	<p>Hi {{.Name}},</p>
	<p>You requested to reset your password. Click the link below to choose a new one.</p>
	<p><a href="{{.Link}}">Reset your password</a></p>
	<p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

// LinkPayload fills the verification and reset templates.
type LinkPayload struct {
	Name string
	Link string
}

func RenderVerifyProfile(p LinkPayload) (string, error) {
	return render(verifyProfileTmpl, p)
}

func RenderRequestResetPassword(p LinkPayload) (string, error) {
	return render(requestResetPasswordTmpl, p)
}

func render(t *template.Template, p LinkPayload) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
