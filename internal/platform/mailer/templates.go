// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const (
	verifyHTML = `<h2>Welcome to ShiftSphere!</h2>
<p>Please verify your email by clicking the link below:</p>
<p><a href="{{.Link}}">Verify Email</a></p>
<p>This link expires in {{.Expiry}}.</p>`

	verifyText = `Welcome to ShiftSphere! Please verify your email by visiting: {{.Link}} (expires in {{.Expiry}})`

	resetHTML = `<h2>Password Reset</h2>
<p>Click below to reset your password:</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>This link expires in {{.Expiry}}.</p>`

	resetText = `Reset your password by visiting: {{.Link}} (expires in {{.Expiry}})`
)

type template struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

var (
	verifyTemplate = template{
		subject: "ShiftSphere - Verify Your Email",
		html:    htmltemplate.Must(htmltemplate.New("verify").Parse(verifyHTML)),
		text:    texttemplate.Must(texttemplate.New("verify").Parse(verifyText)),
	}
	resetTemplate = template{
		subject: "ShiftSphere - Reset Your Password",
		html:    htmltemplate.Must(htmltemplate.New("reset").Parse(resetHTML)),
		text:    texttemplate.Must(texttemplate.New("reset").Parse(resetText)),
	}
)

type linkData struct {
	Link   string
	Expiry string
}

// VerificationEmail builds the message carrying an email-verification link.
func VerificationEmail(to, clientURL, token, expiry string) (Message, error) {
	return verifyTemplate.render(to, linkData{Link: link(clientURL, "verify-email", token), Expiry: expiry})
}

// PasswordResetEmail builds the message carrying a password-reset link.
func PasswordResetEmail(to, clientURL, token, expiry string) (Message, error) {
	return resetTemplate.render(to, linkData{Link: link(clientURL, "reset-password", token), Expiry: expiry})
}

func (t template) render(to string, data linkData) (Message, error) {
	var html, text bytes.Buffer
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("mailer: render html: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("mailer: render text: %w", err)
	}

	return Message{To: to, Subject: t.subject, Text: text.String(), HTML: html.String()}, nil
}

func link(clientURL, path, token string) string {
	return strings.TrimRight(clientURL, "/") + "/" + path + "/" + token
}
