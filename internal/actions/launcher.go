package actions

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher starts and stops desktop programs.
type Launcher interface {
	OpenURL(ctx context.Context, url string) error
	OpenFile(ctx context.Context, path string) error
	Launch(ctx context.Context, app string) error
	Quit(ctx context.Context, app string) error
}

// Starter starts a detached process.
type Starter func(name string, args ...string) error

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// OSLauncher maps launcher operations to the commands of the host desktop.
type OSLauncher struct {
	GOOS  string
	Start Starter
}

func NewOSLauncher() *OSLauncher {
	return &OSLauncher{GOOS: runtime.GOOS, Start: start}
}

var linuxApps = map[string]string{
	"Calendar":   "gnome-calendar",
	"Calculator": "gnome-calculator",
	"Terminal":   "x-terminal-emulator",
}

var windowsApps = map[string]string{
	"Calendar":   "outlookcal:",
	"Calculator": "calc.exe",
	"Terminal":   "cmd.exe",
}

func (l *OSLauncher) OpenURL(ctx context.Context, url string) error {
	return l.open(ctx, url)
}

func (l *OSLauncher) OpenFile(ctx context.Context, path string) error {
	return l.open(ctx, path)
}

func (l *OSLauncher) open(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch l.GOOS {
	case "darwin":
		return l.Start("open", target)
	case "windows":
		return l.Start("cmd", "/c", "start", "", target)
	default:
		return l.Start("xdg-open", target)
	}
}

func (l *OSLauncher) Launch(ctx context.Context, app string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch l.GOOS {
	case "darwin":
		return l.Start("open", "-a", app)
	case "windows":
		return l.Start("cmd", "/c", "start", "", lookup(windowsApps, app))
	default:
		return l.Start(lookup(linuxApps, app))
	}
}

func (l *OSLauncher) Quit(ctx context.Context, app string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch l.GOOS {
	case "darwin":
		return l.Start("osascript", "-e", fmt.Sprintf("tell application %q to quit", app))
	case "windows":
		return l.Start("taskkill", "/IM", lookup(windowsApps, app), "/F")
	default:
		return l.Start("pkill", "-f", lookup(linuxApps, app))
	}
}

func lookup(m map[string]string, app string) string {
	if cmd, ok := m[app]; ok {
		return cmd
	}
	return app
}
