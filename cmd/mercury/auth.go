package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/service"
)

func newAuthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <storage>",
		Short: "Authorize access to a Google Drive storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := c.cfg.GetStorage(args[0])
			if err != nil {
				return err
			}
			auth, err := service.DriveAuthenticator(c.cfg, storage)
			if err != nil {
				return err
			}
			if _, err := auth.Authenticate(cmd.Context(), cmd.InOrStdin(), c.errOut); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "token saved to %s\n", auth.TokenPath())
			return nil
		},
	}
}
