package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/retrodav/cmd/rdc/config"
	"github.com/xxxsen/retrodav/rdc"
	"github.com/xxxsen/retrodav/rdc/client"
)

const (
	defaultConfigFileEnv = "RDC_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	RDC    *rdc.RetroDavClient
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cfgs []string) error {
	var c *config.Config
	var err error
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		c, err = config.Parse(cfg)
		if err == nil {
			break
		}
	}
	if c == nil {
		return fmt.Errorf("no valid config file found, last err:%w", err)
	}
	ctx.Config = c
	logger.Init("", c.LogLevel, 0, 0, 0, true)
	cli, err := client.New(
		client.WithSchema(c.Schema),
		client.WithHost(c.Host),
		client.WithAuth(c.AccessKey, c.SecretKey),
		client.WithTimeout(time.Duration(c.Timeout)*time.Second),
	)
	if err != nil {
		return err
	}
	ctx.RDC = rdc.New(rdc.WithClient(cli), rdc.WithThread(c.Thread))
	return nil
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:   "rdc",
		Short: "RetroDav CLI tool",
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, "/etc/rdc/rdc_config.json", envConfigFile})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
