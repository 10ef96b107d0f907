package browser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageBeforeLaunch(t *testing.T) {
	session := NewSession(DefaultOptions(), slog.Default(), nil)

	page, err := session.NewPage()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLaunched)
	assert.Nil(t, page)
}

func TestCloseWithoutLaunch(t *testing.T) {
	session := NewSession(nil, slog.Default(), nil)

	assert.NoError(t, session.Close())
	assert.NoError(t, session.Close())
}

func TestDetectBotChallenge(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		detected bool
	}{
		{
			name:     "captcha prompt",
			content:  "<html><body>Enter the characters you see below</body></html>",
			detected: true,
		},
		{
			name:     "robot apology",
			content:  "<p>Sorry, we just need to make sure you're not a robot.</p>",
			detected: true,
		},
		{
			name:     "automated access notice",
			content:  "To discuss automated access to Amazon data please contact api-services-support@amazon.com",
			detected: true,
		},
		{
			name:     "normal listing page",
			content:  "<html><body><div id=\"gridItemRoot\">Best Sellers</div></body></html>",
			detected: false,
		},
		{
			name:     "empty",
			content:  "",
			detected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker, detected := DetectBotChallenge(tt.content)
			assert.Equal(t, tt.detected, detected)
			if detected {
				assert.NotEmpty(t, marker)
			}
		})
	}
}

func TestDefaultOptionsPolicies(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 3, opts.MaxRetries)
	require.NotNil(t, opts.Backoff)
	assert.Equal(t, opts.Backoff(1), 2*opts.Backoff(0))
}
