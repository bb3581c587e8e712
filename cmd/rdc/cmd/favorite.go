package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type favoriteArgs struct {
	id     string
	remove bool
}

func NewFavoriteCmd(c *Context) *cobra.Command {
	args := &favoriteArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "fav",
		Short: "Mark or unmark a game as favorite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(args.id) == 0 {
				return fmt.Errorf("no game id found")
			}
			if err := c.RDC.Client().SetFavorite(ctx, args.id, !args.remove); err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("set favorite succ", zap.String("game_id", args.id), zap.Bool("favorite", !args.remove))
			return nil
		},
	}
	subc.Flags().StringVarP(&args.id, "id", "i", "", "game id")
	subc.Flags().BoolVar(&args.remove, "remove", false, "remove from favorite")
	return subc
}

func init() {
	register(NewFavoriteCmd)
}
