package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mushroomlog/mushroomlog/internal/app"
	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/db"
	"github.com/mushroomlog/mushroomlog/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's batches as CSV",
	RunE:  runExport,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-images",
	Short: "Delete a user's images older than a date",
	Long: `Deletes every stored image of the user last modified before the given
date and removes the dangling URLs from their batches.`,
	RunE: runCleanup,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the database and image storage",
	RunE:  runCheck,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, migrator, err := db.Connect(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer store.DB.Close()

	statusOnly, _ := cmd.Flags().GetBool("status")
	if statusOnly {
		list, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, m := range list {
			mark := " "
			if m.Applied {
				mark = "x"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, m.Filename)
		}
		return nil
	}

	n, err := migrator.RunMigrations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) on %s\n", n, store.DB.Driver())
	return nil
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func runExport(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = services.ExportFilename("csv")
	}
	return withApp(cmd.Context(), func(a *app.App) error {
		data, err := a.Services.Reports.ExportCSV(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if output == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(data))
		return nil
	})
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	before, _ := cmd.Flags().GetString("before")
	return withApp(cmd.Context(), func(a *app.App) error {
		res, err := a.Services.Images.CleanupBefore(cmd.Context(), userID, before)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d image(s), updated %d batch(es)\n", res.Deleted, res.BatchesUpdated)
		return nil
	})
}

func runCheck(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	failed := false

	c := e.cfg
	if c.Database.Driver == "postgres" {
		res := services.TestConnection(ctx, services.ConnectionParams{
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			User:     c.Database.User,
			Password: c.Database.Password,
			Database: c.Database.Name,
		})
		if res.Success {
			fmt.Fprintf(out, "database: ok (postgres %s:%d/%s)\n", c.Database.Host, c.Database.Port, c.Database.Name)
		} else {
			failed = true
			fmt.Fprintf(out, "database: FAILED %s\n", res.Error)
		}
	} else {
		store, _, err := db.Connect(ctx, c, e.logger)
		if err == nil {
			err = store.DB.Ping(ctx)
			store.DB.Close()
		}
		if err != nil {
			failed = true
			fmt.Fprintf(out, "database: FAILED %v\n", err)
		} else {
			fmt.Fprintf(out, "database: ok (sqlite %s)\n", c.Database.SQLitePath)
		}
	}

	bs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(c.Storage.Driver),
		Bucket: c.Storage.Bucket,
		FSRoot: c.Storage.FSRoot,
		S3: blob.S3Config{
			Region:          c.Storage.S3.Region,
			Endpoint:        c.Storage.S3.Endpoint,
			AccessKeyID:     c.Storage.S3.AccessKeyID,
			SecretAccessKey: c.Storage.S3.SecretAccessKey,
			PathStyle:       c.Storage.S3.PathStyle,
		},
	})
	if err != nil {
		failed = true
		fmt.Fprintf(out, "storage: FAILED %v\n", err)
	} else {
		urls := blob.URLBuilder{Base: c.Storage.PublicURL, Bucket: c.Storage.Bucket}
		h := services.NewImageService(bs, urls, nil, e.logger).Health(ctx)
		if h.Success {
			fmt.Fprintf(out, "storage: ok (%s) %s\n", bs.Driver(), h.Message)
		} else {
			failed = true
			fmt.Fprintf(out, "storage: FAILED %s\n", h.Message)
		}
	}

	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
