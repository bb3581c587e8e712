package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/retrodav/davclient"
	"github.com/xxxsen/retrodav/davscan"
)

type lsArgs struct {
	user      string
	pass      string
	depth     int
	recursive bool
	timeout   int64
	logLevel  string
}

// NewLsCmd 直接对webdav地址进行枚举, 不依赖服务端
func NewLsCmd(c *Context) *cobra.Command {
	args := &lsArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "ls <url>",
		Short: "List a webdav directory",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init("", args.logLevel, 0, 0, 0, true)
			return nil
		},
		RunE: func(cmd *cobra.Command, params []string) error {
			return onRunLs(ctx, args, params[0])
		},
	}
	subc.Flags().StringVarP(&args.user, "user", "u", "", "webdav username")
	subc.Flags().StringVarP(&args.pass, "pass", "p", "", "webdav password")
	subc.Flags().BoolVarP(&args.recursive, "recursive", "r", false, "walk sub directories")
	subc.Flags().IntVar(&args.depth, "depth", 0, "max walk depth, only used in recursive mode")
	subc.Flags().Int64Var(&args.timeout, "timeout", 30, "request timeout in seconds")
	subc.Flags().StringVar(&args.logLevel, "log-level", "info", "log level")
	return subc
}

func onRunLs(ctx context.Context, args *lsArgs, raw string) error {
	root, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url:%s, err:%w", raw, err)
	}
	cli, err := davclient.New(davclient.WithAuth(args.user, args.pass), davclient.WithTimeout(time.Duration(args.timeout)*time.Second))
	if err != nil {
		return err
	}
	s := davscan.New(cli)
	printEntry := func(ctx context.Context, ent *davscan.Entry) (bool, error) {
		kind := "f"
		size := humanize.IBytes(uint64(ent.Size))
		if ent.IsDir {
			kind = "d"
			size = "-"
		}
		fmt.Fprintf(os.Stdout, "%s\t%10s\t%s\n", kind, size, ent.URI.String())
		return true, nil
	}
	if args.recursive {
		return s.Walk(ctx, root, args.depth, printEntry)
	}
	return s.Scan(ctx, root, printEntry)
}

func init() {
	register(NewLsCmd)
}
