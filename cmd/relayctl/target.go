package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/muurk/remoterelay/internal/client"
	"github.com/muurk/remoterelay/internal/config"
	"github.com/muurk/remoterelay/internal/discovery"
)

// PasswordEnvVar supplies the controller password without a prompt.
const PasswordEnvVar = "REMOTERELAY_PASSWORD"

// Connection flags, persistent on root
var (
	deviceArg    string
	devicePort   int
	username     string
	password     string
	askPassword  bool
	useTLS       bool
	insecure     bool
	timeoutSecs  int
	outputFormat string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&deviceArg, "device", "d", "", "Controller address, ID or nickname (skips discovery)")
	pf.IntVar(&devicePort, "port", discovery.DefaultPort, "Controller HTTP port when --device is an address")
	pf.StringVarP(&username, "user", "u", "", "Login (default from registry, else admin)")
	pf.StringVar(&password, "password", "", "Password (or set "+PasswordEnvVar+")")
	pf.BoolVarP(&askPassword, "ask-password", "P", false, "Prompt for the password")
	pf.BoolVar(&useTLS, "tls", false, "Use HTTPS")
	pf.BoolVar(&insecure, "insecure", false, "Accept self-signed certificates")
	pf.IntVar(&timeoutSecs, "timeout", 10, "Request timeout in seconds")
	pf.StringVar(&outputFormat, "format", "text", "Output format (text, json)")
}

// target is the controller a command talks to.
type target struct {
	ID       string
	Addr     string
	Client   *client.Client
	Registry *config.Registry
}

// openRegistry loads the controller registry, falling back to an unsaved
// empty one when the config directory is unusable.
func openRegistry() *config.Registry {
	path, err := config.GetConfigPath(config.RegistryFile)
	if err != nil {
		return config.NewRegistry("")
	}
	reg, err := config.LoadRegistry(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return config.NewRegistry(path)
	}
	return reg
}

// resolveTarget finds the controller named by --device, or discovers one.
func resolveTarget(ctx context.Context) (*target, error) {
	reg := openRegistry()
	t := &target{Registry: reg}

	switch {
	case deviceArg != "":
		if id, c, ok := reg.Resolve(deviceArg); ok && c.LastAddr != "" {
			t.ID, t.Addr = id, c.LastAddr
			break
		}
		t.ID = deviceArg
		t.Addr = deviceArg
		if _, _, err := net.SplitHostPort(deviceArg); err != nil {
			t.Addr = net.JoinHostPort(deviceArg, strconv.Itoa(devicePort))
		}

	default:
		timeout := time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
		fmt.Fprintf(os.Stderr, "No --device given, scanning for controllers (%s)...\n", timeout)

		scanner := discovery.NewScanner()
		scanner.Timeout = timeout
		devices, err := scanner.ScanForDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}
		switch len(devices) {
		case 0:
			return nil, fmt.Errorf("no controllers found; use --device to give an address")
		case 1:
		default:
			names := make([]string, 0, len(devices))
			for _, d := range devices {
				names = append(names, d.String())
			}
			return nil, fmt.Errorf("found %d controllers, choose one with --device:\n  %s", len(devices), strings.Join(names, "\n  "))
		}
		d := devices[0]
		t.ID = d.ID
		t.Addr = net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
		reg.Seen(d.ID, t.Addr, time.Now())
		saveRegistry(reg)
		fmt.Fprintf(os.Stderr, "Using %s\n\n", d)
	}

	c, err := newClient(t.Addr, reg)
	if err != nil {
		return nil, err
	}
	t.Client = c
	return t, nil
}

func newClient(addr string, reg *config.Registry) (*client.Client, error) {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	c := client.NewClientWithURL(scheme + "://" + addr)
	c.SetTimeout(time.Duration(timeoutSecs) * time.Second)
	if insecure {
		c.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	user := username
	if user == "" && reg.Preferences.Username != "" {
		user = reg.Preferences.Username
	}
	if user == "" {
		user = client.DefaultUsername
	}

	pass, err := resolvePassword()
	if err != nil {
		return nil, err
	}
	c.SetAuth(user, pass)
	return c, nil
}

func resolvePassword() (string, error) {
	switch {
	case password != "":
		return password, nil
	case askPassword:
		return promptSecret("Password: ")
	case os.Getenv(PasswordEnvVar) != "":
		return os.Getenv(PasswordEnvVar), nil
	}
	return client.DefaultPassword, nil
}

// promptSecret reads a line from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for a secret: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(secret), nil
}

func saveRegistry(reg *config.Registry) {
	if reg.Path() == "" {
		return
	}
	if err := reg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save registry: %v\n", err)
	}
}
