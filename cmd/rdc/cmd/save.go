package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/retrodav/server/model"
	"go.uber.org/zap"
)

type saveBackupArgs struct {
	dir      string
	provider string
}

type saveRestoreArgs struct {
	id   string
	file string
}

func NewSaveCmd(c *Context) *cobra.Command {
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "save",
		Short: "Backup or restore game saves",
	}
	backup := &saveBackupArgs{}
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Download all saves to local dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunSaveBackup(ctx, c, backup)
		},
	}
	backupCmd.Flags().StringVarP(&backup.dir, "dir", "d", ".", "local dir to store saves")
	backupCmd.Flags().StringVarP(&backup.provider, "provider", "p", "", "only backup games from this provider")

	restore := &saveRestoreArgs{}
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Upload a local save file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunSaveRestore(ctx, c, restore)
		},
	}
	restoreCmd.Flags().StringVarP(&restore.id, "id", "i", "", "game id")
	restoreCmd.Flags().StringVarP(&restore.file, "file", "f", "", "local save file")

	subc.AddCommand(backupCmd, restoreCmd)
	return subc
}

func onRunSaveBackup(ctx context.Context, c *Context, args *saveBackupArgs) error {
	games, err := c.RDC.ListAllGame(ctx, &model.ListGameRequest{ProviderId: args.provider})
	if err != nil {
		return fmt.Errorf("list game failed, err:%w", err)
	}
	cnt, err := c.RDC.BackupSaves(ctx, games, args.dir)
	if err != nil {
		return fmt.Errorf("backup saves failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("backup saves finish", zap.Int("game_count", len(games)), zap.Int("save_count", cnt), zap.String("dir", args.dir))
	return nil
}

func onRunSaveRestore(ctx context.Context, c *Context, args *saveRestoreArgs) error {
	if len(args.id) == 0 || len(args.file) == 0 {
		return fmt.Errorf("game id and save file are required")
	}
	sz, err := c.RDC.RestoreSave(ctx, args.id, args.file)
	if err != nil {
		return fmt.Errorf("restore save failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("restore save succ", zap.String("game_id", args.id), zap.Int64("size", sz))
	return nil
}

func init() {
	register(NewSaveCmd)
}
