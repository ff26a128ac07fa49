package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload the database to the mixer on LMS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer inv.stop()

			if _, err := os.Stat(inv.cfg.Paths.DB); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("database %s does not exist; run analyse first", inv.cfg.Paths.DB)
			}

			client, err := newUploadClient(inv)
			if err != nil {
				return err
			}
			store, err := inv.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := client.Upload(inv.ctx, store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %d bytes\n", result.Bytes)
			if result.ArchiveObject != "" {
				fmt.Fprintf(out, "Archived as %s\n", result.ArchiveObject)
			}
			return nil
		},
	}
}

func newStopMixerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stopmixer",
		Short: "Ask the LMS plugin to stop the mixer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer inv.stop()

			client, err := newUploadClient(inv)
			if err != nil {
				return err
			}
			if err := client.StopMixer(inv.ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Mixer stop requested")
			return nil
		},
	}
}

func newUploadClient(inv *invocation) (*upload.Client, error) {
	cfg := inv.cfg
	dest, err := upload.ParseDestination(cfg.LMS.Host, cfg.LMS.JSONPort)
	if err != nil {
		return nil, err
	}
	opts := []upload.Option{upload.WithLogger(inv.logger)}
	if cfg.Archive.Enabled {
		archive, err := upload.NewS3Archive(cfg.Archive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, upload.WithArchive(archive))
		inv.logger.Debug("snapshot archive enabled", logging.String("bucket", cfg.Archive.Bucket))
	}
	return upload.NewClient(dest, upload.NewLMS(cfg.LMSTimeout()), opts...), nil
}
