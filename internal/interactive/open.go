package interactive

import (
	"context"
	"os/exec"
	"runtime"
)

// OpenURL opens url with the desktop's default handler and does not wait
// for the handler to exit. The handler outlives ctx.
func OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := openCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
