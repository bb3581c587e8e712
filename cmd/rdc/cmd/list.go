package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/retrodav/server/model"
)

type listArgs struct {
	system   string
	provider string
	keyword  string
	favorite bool
}

func NewListCmd(c *Context) *cobra.Command {
	args := &listArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "list",
		Short: "List games in library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunList(ctx, c, args)
		},
	}
	subc.Flags().StringVarP(&args.system, "system", "s", "", "filter by system id, eg: gba")
	subc.Flags().StringVarP(&args.provider, "provider", "p", "", "filter by storage provider id")
	subc.Flags().StringVarP(&args.keyword, "keyword", "k", "", "search title")
	subc.Flags().BoolVarP(&args.favorite, "favorite", "f", false, "only list favorite games")
	return subc
}

func onRunList(ctx context.Context, c *Context, args *listArgs) error {
	games, err := c.RDC.ListAllGame(ctx, &model.ListGameRequest{
		SystemId:     args.system,
		ProviderId:   args.provider,
		Keyword:      args.keyword,
		FavoriteOnly: args.favorite,
	})
	if err != nil {
		return fmt.Errorf("list game failed, err:%w", err)
	}
	for _, g := range games {
		fav := " "
		if g.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(os.Stdout, "%s %s\t%-9s\t%10s\t%s\n", fav, g.GameId, g.SystemId, humanize.IBytes(uint64(g.FileSize)), g.Title)
	}
	return nil
}

func init() {
	register(NewListCmd)
}
