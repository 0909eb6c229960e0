package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ocrun/internal/card"
	"github.com/samcharles93/ocrun/internal/logger"
)

func cardsCmd() *cli.Command {
	return &cli.Command{
		Name:  "cards",
		Usage: "Resolve a card and report what it exposes",
		Flags: commonCardFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyCardConfig(cmd, LoadConfig())

			layout, err := loadLayoutOption()
			if err != nil {
				return err
			}
			c, err := card.Open(cardID, card.Options{Layout: layout, Logger: log})
			if err != nil {
				return fmt.Errorf("open card %s: %w", cardID, err)
			}
			defer c.Close()

			actionType, err := c.ActionType()
			if err != nil {
				return fmt.Errorf("read action type: %w", err)
			}
			l := c.Layout()
			fmt.Printf("card:           %s\n", c.Identifier())
			fmt.Printf("action type:    0x%08x\n", actionType)
			fmt.Printf("layout version: %d\n", l.Version)
			fmt.Printf("job window:     0x%03x (+%d bytes)\n", l.JobOff, l.JobSize)
			return nil
		},
	}
}
