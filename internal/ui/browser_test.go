package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_Open(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"darwin", "open", []string{"https://idp.example.com/a?b=c"}},
		{"linux", "xdg-open", []string{"https://idp.example.com/a?b=c"}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "https://idp.example.com/a?b=c"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			b := &Browser{goos: tt.goos, start: func(name string, args ...string) error {
				gotName, gotArgs = name, args
				return nil
			}}

			require.NoError(t, b.Open("https://idp.example.com/a?b=c"))
			assert.Equal(t, tt.wantName, gotName)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func TestBrowser_OpenRejects(t *testing.T) {
	called := false
	b := &Browser{goos: "linux", start: func(string, ...string) error {
		called = true
		return nil
	}}

	for _, u := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "https://"} {
		assert.Error(t, b.Open(u), u)
	}
	assert.False(t, called)

	plan9 := &Browser{goos: "plan9", start: b.start}
	assert.Error(t, plan9.Open("https://example.com"))
}

func TestBrowser_StartError(t *testing.T) {
	b := &Browser{goos: "linux", start: func(string, ...string) error {
		return errors.New("exec: xdg-open: not found")
	}}

	assert.EqualError(t, b.Open("https://example.com"), "exec: xdg-open: not found")
}
