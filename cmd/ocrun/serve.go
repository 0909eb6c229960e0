package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ocrun/internal/api"
	"github.com/samcharles93/ocrun/internal/card"
	"github.com/samcharles93/ocrun/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		actionName  string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the diagnostic job API over one attached action",
		Flags: append(commonCardFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "action",
				Usage:       "action to attach (helloworld, memcopy, or a hex type id)",
				Value:       "memcopy",
				Destination: &actionName,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, LoadConfig(), &addr)

			actionType, err := parseActionType(actionName)
			if err != nil {
				return err
			}
			layout, err := loadLayoutOption()
			if err != nil {
				return err
			}
			c, err := card.Open(cardID, card.Options{Layout: layout, Logger: log})
			if err != nil {
				return fmt.Errorf("open card %s: %w", cardID, err)
			}
			defer c.Close()

			mode := card.NotifyIRQ
			if noIRQ {
				mode = card.NotifyPoll
			}
			action, err := c.Attach(actionType, card.AttachOptions{Mode: mode})
			if err != nil {
				return fmt.Errorf("attach action 0x%08x: %w", actionType, err)
			}

			runner := &api.ActionRunner{Action: action, Timeout: execTimeout}
			info := api.CardInfo{
				Identifier: c.Identifier(),
				ActionType: fmt.Sprintf("0x%08x", actionType),
				Notify:     mode.String(),
				Layout:     c.Layout(),
			}
			server := api.NewServer(api.NewJobStore(), runner, info)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "card", c.Identifier())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
