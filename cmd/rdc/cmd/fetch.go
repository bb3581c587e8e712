package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type fetchArgs struct {
	ids []string
	dir string
}

func NewFetchCmd(c *Context) *cobra.Command {
	args := &fetchArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "fetch",
		Short: "Download roms to local dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunFetch(ctx, c, args)
		},
	}
	subc.Flags().StringSliceVarP(&args.ids, "id", "i", nil, "game id, can be specified multiple times")
	subc.Flags().StringVarP(&args.dir, "dir", "d", ".", "local dir to store roms")
	return subc
}

func onRunFetch(ctx context.Context, c *Context, args *fetchArgs) error {
	if len(args.ids) == 0 {
		return fmt.Errorf("no game id found")
	}
	start := time.Now()
	rs, err := c.RDC.FetchRoms(ctx, args.ids, args.dir)
	if err != nil {
		return fmt.Errorf("fetch rom failed, err:%w", err)
	}
	for id, location := range rs {
		logutil.GetLogger(ctx).Info("rom saved", zap.String("game_id", id), zap.String("location", location))
	}
	logutil.GetLogger(ctx).Info("fetch rom finish", zap.Int("count", len(rs)), zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewFetchCmd)
}
