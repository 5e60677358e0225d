// Package email delivers the transactional messages of the lifecycle
// service, such as trial extension proposals to club administrators.
//
// PostmarkSender sends through Postmark. FileSender drops each message into
// a local outbox directory so development setups never mail real people.
// NewSender picks between them from Config. Bodies are rendered from templ
// components in the templates subpackage:
//
//	html, err := templates.Render(ctx, templates.Layout("Extend your trial",
//		templates.Heading("Your club is growing"),
//		templates.PrimaryButton("Accept", templ.URL(acceptURL)),
//	))
//	if err != nil {
//		return err
//	}
//	err = sender.Send(ctx, email.Message{To: admin, Subject: "Extend your trial", HTML: html})
package email
