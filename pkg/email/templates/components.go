package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in a minimal email document with inline styles.
func Layout(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="font-family:Helvetica,Arial,sans-serif;color:#1f2933;line-height:1.5">`+
			`<div style="max-width:560px;margin:0 auto;padding:24px">`); err != nil {
			return err
		}
		for _, c := range body {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div></body></html>`)
		return err
	})
}

// Heading renders an escaped h1.
func Heading(text string) templ.Component {
	return element(`<h1 style="font-size:20px;margin:0 0 16px">`, text, `</h1>`)
}

// Text renders an escaped paragraph.
func Text(text string) templ.Component {
	return element(`<p style="margin:0 0 12px">`, text, `</p>`)
}

// TextSecondary renders a muted paragraph, typically for footers.
func TextSecondary(text string) templ.Component {
	return element(`<p style="margin:16px 0 0;color:#7b8794;font-size:13px">`, text, `</p>`)
}

// PrimaryButton renders a call-to-action link styled as a button.
func PrimaryButton(label string, href templ.SafeURL) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p style="margin:20px 0"><a href="`+
			templ.EscapeString(string(href))+
			`" style="background:#2563eb;color:#ffffff;padding:10px 18px;border-radius:6px;text-decoration:none">`+
			templ.EscapeString(label)+`</a></p>`)
		return err
	})
}

func element(open, text, closing string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, open+templ.EscapeString(text)+closing)
		return err
	})
}
