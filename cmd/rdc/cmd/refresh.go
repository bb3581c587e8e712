package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func NewRefreshCmd(c *Context) *cobra.Command {
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "refresh",
		Short: "Rescan all storage providers on server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunRefresh(ctx, c)
		},
	}
	return subc
}

func onRunRefresh(ctx context.Context, c *Context) error {
	start := time.Now()
	rs, err := c.RDC.Client().Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed, err:%w", err)
	}
	var failed int
	for _, item := range rs {
		if len(item.Error) > 0 {
			failed++
			logutil.GetLogger(ctx).Error("refresh provider failed", zap.String("provider", item.Provider), zap.String("err", item.Error))
			continue
		}
		logutil.GetLogger(ctx).Info("refresh provider succ", zap.String("provider", item.Provider), zap.Int("listed", item.Listed),
			zap.Int("indexed", item.Indexed), zap.Int("skipped", item.Skipped), zap.Int("removed", item.Removed),
			zap.Duration("cost", time.Duration(item.Cost)*time.Millisecond))
	}
	logutil.GetLogger(ctx).Info("refresh finish", zap.Int("provider_count", len(rs)), zap.Duration("cost", time.Since(start)))
	if failed > 0 {
		return fmt.Errorf("%d provider refresh failed", failed)
	}
	return nil
}

func init() {
	register(NewRefreshCmd)
}
