package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/backup"
	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
)

func main() {
	farmID := flag.String("farm-id", "", "Required: farm id")
	dir := flag.String("dir", "", "Backup directory (default $BACKUP_DIR)")
	compress := flag.Bool("compress", true, "Gzip the dump")
	retention := flag.Int("retention", 0, "Completed backups to keep (0 = default, -1 = no pruning)")
	restore := flag.String("restore", "", "Restore this backup id instead of creating one")
	clean := flag.Bool("clean", false, "Drop and recreate the database before restoring")
	confirm := flag.String("confirm", "", "Type RESTORE to proceed with a restore")
	flag.Parse()

	if strings.TrimSpace(*farmID) == "" {
		fmt.Fprintln(os.Stderr, "--farm-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	orchestrator := backup.NewOrchestrator(db, logger)
	ctx := context.Background()

	if *restore != "" {
		if strings.TrimSpace(*confirm) != "RESTORE" {
			fmt.Fprintln(os.Stderr, "set --confirm=RESTORE to proceed; restoring overwrites live data")
			os.Exit(1)
		}
		if err := orchestrator.RestoreBackup(ctx, *restore, backup.RestoreOptions{
			Confirm: true,
			Clean:   *clean,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("restored backup %s\n", *restore)
		return
	}

	backupDir := *dir
	if backupDir == "" {
		backupDir = os.Getenv("BACKUP_DIR")
	}
	info, err := orchestrator.CreateBackup(ctx, *farmID, backup.Options{
		Dir:            backupDir,
		Type:           models.BackupTypeFull,
		Compress:       *compress,
		RetentionCount: *retention,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backup %s completed: %s (%d bytes, sha256=%s)\n",
		info.BackupId, info.FilePath, info.FileSize, info.Checksum)
}
