package confirmation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabu-vault/internal/display"
)

func newTestService(input string) (Service, *bytes.Buffer) {
	var out bytes.Buffer
	printer := display.NewPrinter(display.PlainTheme(), display.WithOutput(&out), display.WithIcons(false))
	return NewServiceWithIO(printer, strings.NewReader(input), &out), &out
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"yes word", "yes\n", true},
		{"y shorthand", "y\n", true},
		{"uppercase Y", "Y\n", true},
		{"no", "n\n", false},
		{"empty defaults to no", "\n", false},
		{"garbage", "maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.input)
			ok, err := svc.Confirm("Proceed?", false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestConfirmAutoApprove(t *testing.T) {
	svc, out := newTestService("")
	ok, err := svc.Confirm("Proceed?", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Auto-approving")
}

func TestConfirmDestructive(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"exact yes", "yes\n", true},
		{"yes with whitespace", "  yes  \n", true},
		{"y is not enough", "y\n", false},
		{"uppercase YES rejected", "YES\n", false},
		{"empty rejected", "\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.input)
			ok, err := svc.ConfirmDestructive("Overwrite live data?", false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestConfirmDestructiveAutoApprove(t *testing.T) {
	svc, out := newTestService("")
	ok, err := svc.ConfirmDestructive("Overwrite live data?", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "destructive")
}

func TestConfirmPromptShown(t *testing.T) {
	svc, out := newTestService("no\n")
	_, err := svc.ConfirmDestructive("Restore will overwrite the database.", false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Type 'yes' to continue")
}
