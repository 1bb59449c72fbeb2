package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dukan.org/internal/config"
	"dukan.org/internal/credstore"
	"dukan.org/internal/gateway"
	"dukan.org/internal/session"
	"dukan.org/internal/transport"
)

// app wires the client stack for one invocation: file-backed credential
// store, intercepting transport, gateway, session controller.
type app struct {
	cfg   config.Config
	creds *credstore.File
	ctrl  *session.Controller
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	creds := credstore.NewFile(cfg.TokenFile)
	icept := transport.New(creds)
	httpClient := &http.Client{Transport: icept}
	gw := gateway.New(cfg.BaseURL, httpClient)

	perMinute := cfg.LoginRatePerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 1
	}
	ctrl := session.New(creds, gw,
		session.WithLoginRate(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	)
	icept.OnUnauthorized(ctrl.Invalidate)

	return &app{cfg: cfg, creds: creds, ctrl: ctrl}, nil
}

// ctx applies the configured per-command timeout.
func (a *app) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(a.cfg.CommandTimeout))
}

func prompt(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
