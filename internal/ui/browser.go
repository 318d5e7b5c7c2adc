package ui

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Browser opens URLs with the platform's default handler.
type Browser struct {
	goos  string
	start func(name string, args ...string) error
}

// NewBrowser returns a Browser for the current platform.
func NewBrowser() *Browser {
	return &Browser{
		goos: runtime.GOOS,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Open launches the default browser at rawURL. Only http and https URLs are opened.
func (b *Browser) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) url", rawURL)
	}

	switch b.goos {
	case "darwin":
		return b.start("open", u.String())
	case "linux", "freebsd", "openbsd", "netbsd":
		return b.start("xdg-open", u.String())
	case "windows":
		return b.start("rundll32", "url.dll,FileProtocolHandler", u.String())
	default:
		return fmt.Errorf("unsupported platform: %s", b.goos)
	}
}
