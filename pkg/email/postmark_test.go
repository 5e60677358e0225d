package email

import (
	"context"
	"errors"
	"testing"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPostmark struct {
	mock.Mock
}

func (m *mockPostmark) SendEmail(ctx context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(postmark.EmailResponse), args.Error(1)
}

func TestPostmarkSender_Send(t *testing.T) {
	t.Parallel()

	msg := Message{To: "owner@riverside.test", Subject: "Extend your trial", HTML: "<p>hi</p>", Tag: "trial-extension-proposed"}

	t.Run("maps message to postmark email", func(t *testing.T) {
		t.Parallel()

		api := new(mockPostmark)
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(e postmark.Email) bool {
			return e.From == "noreply@clubkit.test" &&
				e.ReplyTo == "support@clubkit.test" &&
				e.To == msg.To &&
				e.Subject == msg.Subject &&
				e.HTMLBody == msg.HTML &&
				e.Tag == msg.Tag
		})).Return(postmark.EmailResponse{}, nil).Once()

		s := &PostmarkSender{api: api, from: "noreply@clubkit.test", replyTo: "support@clubkit.test"}
		require.NoError(t, s.Send(context.Background(), msg))
		api.AssertExpectations(t)
	})

	t.Run("api error code", func(t *testing.T) {
		t.Parallel()

		api := new(mockPostmark)
		api.On("SendEmail", mock.Anything, mock.Anything).
			Return(postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}, nil).Once()

		err := (&PostmarkSender{api: api, from: "noreply@clubkit.test"}).Send(context.Background(), msg)
		require.ErrorIs(t, err, ErrSendFailed)
		assert.Contains(t, err.Error(), "inactive recipient")
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection reset")
		api := new(mockPostmark)
		api.On("SendEmail", mock.Anything, mock.Anything).Return(postmark.EmailResponse{}, boom).Once()

		err := (&PostmarkSender{api: api, from: "noreply@clubkit.test"}).Send(context.Background(), msg)
		assert.ErrorIs(t, err, ErrSendFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid message never reaches api", func(t *testing.T) {
		t.Parallel()

		api := new(mockPostmark)
		err := (&PostmarkSender{api: api}).Send(context.Background(), Message{})
		assert.ErrorIs(t, err, ErrInvalidMessage)
		api.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})
}
