package main

import (
	"context"

	"github.com/miradorstack/vmtest/internal/api"
	"github.com/miradorstack/vmtest/internal/config"
	"github.com/miradorstack/vmtest/internal/models"
)

func query(ctx context.Context, cfg *config.Config, opts options) error {
	conn, err := api.Dial(opts.addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	client := api.NewClient(conn)

	if opts.consensus {
		rep, err := client.Consensus(ctx)
		if err != nil {
			return err
		}
		return writeStdout(cfg.Output.Format, nil, &rep)
	}

	var fp models.Fingerprint
	if opts.latest {
		fp, err = client.Latest(ctx)
	} else {
		fp, err = client.Run(ctx, models.RunRequest{Iterations: opts.iterations, Label: opts.label, Refresh: opts.refresh})
	}
	if err != nil {
		return err
	}
	return writeStdout(cfg.Output.Format, []models.Fingerprint{fp}, nil)
}
