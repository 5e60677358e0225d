package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/email"
	"github.com/dmitrymomot/clubkit/pkg/email/templates"
)

// Notifier delivers extension proposals to club administrators.
type Notifier interface {
	ExtensionProposed(ctx context.Context, sub Subscription) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, sub Subscription) error

func (f NotifierFunc) ExtensionProposed(ctx context.Context, sub Subscription) error {
	return f(ctx, sub)
}

// MembershipChecker answers whether a user belongs to a club.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID string, clubID uuid.UUID) (bool, error)
}

// MembershipCheckerFunc adapts a function to MembershipChecker.
type MembershipCheckerFunc func(ctx context.Context, userID string, clubID uuid.UUID) (bool, error)

func (f MembershipCheckerFunc) IsMember(ctx context.Context, userID string, clubID uuid.UUID) (bool, error) {
	return f(ctx, userID, clubID)
}

// BoundaryResolver looks up when a paid subscription next renews.
type BoundaryResolver interface {
	RenewalBoundary(ctx context.Context, providerSubscriptionID string) (time.Time, error)
}

// ErrNoContact is returned by EmailNotifier for clubs without a contact address.
var ErrNoContact = errors.New("lifecycle: club has no contact email")

// EmailNotifier mails the club contact a link to accept the proposal.
type EmailNotifier struct {
	sender    email.Sender
	acceptURL string
}

// NewEmailNotifier builds a notifier. acceptURL is a format string that
// receives the club id, e.g. "https://app.example.com/clubs/%s/extension".
func NewEmailNotifier(sender email.Sender, acceptURL string) *EmailNotifier {
	if sender == nil {
		panic("lifecycle: email sender is required")
	}
	return &EmailNotifier{sender: sender, acceptURL: acceptURL}
}

func (n *EmailNotifier) ExtensionProposed(ctx context.Context, sub Subscription) error {
	if sub.ContactEmail == "" {
		return ErrNoContact
	}

	name := sub.ClubName
	if name == "" {
		name = "your club"
	}
	subject := fmt.Sprintf("%d more days to try %s", sub.ExtensionProposedDays, name)
	link := templ.URL(fmt.Sprintf(n.acceptURL, sub.ClubID))

	body, err := templates.Render(ctx, templates.Layout(subject,
		templates.Heading("Your trial can be extended"),
		templates.Text(fmt.Sprintf(
			"Players are already active in %s. Accept the offer and the trial runs for %d more days.",
			name, sub.ExtensionProposedDays,
		)),
		templates.PrimaryButton("Extend my trial", link),
		templates.TextSecondary(fmt.Sprintf("The trial currently ends on %s.", sub.TrialEndsAt.Format("January 2, 2006"))),
	))
	if err != nil {
		return fmt.Errorf("render proposal email: %w", err)
	}

	return n.sender.Send(ctx, email.Message{
		To:      sub.ContactEmail,
		Subject: subject,
		HTML:    body,
		Tag:     "trial-extension-proposed",
	})
}
