package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/autoinstall/internal/cloudinit"
	"github.com/yanizio/autoinstall/internal/server"
)

// newRenderCmd prints one document exactly as the server would send it.
func newRenderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "render {user-data|meta-data} VMNAME",
		Short:     "Print a rendered document to stdout",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{cloudinit.DocUserData, cloudinit.DocMetaData},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, vm := args[0], args[1]

			snap, _, err := resolveConfig(cmd.Context(), opts)
			if err != nil {
				return err
			}
			r, err := cloudinit.New(snap.Variant)
			if err != nil {
				return err
			}

			var out []byte
			switch doc {
			case cloudinit.DocUserData:
				out, err = r.UserData(snap, vm)
			case cloudinit.DocMetaData:
				out, err = r.MetaData(vm)
			default:
				return fmt.Errorf("unknown document %q, want %s or %s",
					doc, cloudinit.DocUserData, cloudinit.DocMetaData)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// newStatusCmd prints the /config/status body plus resolver warnings.
func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the resolved configuration status (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, diag, err := resolveConfig(cmd.Context(), opts)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(server.NewStatus(snap), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			for _, w := range diag.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("warning: "+w))
			}
			return nil
		},
	}
}
