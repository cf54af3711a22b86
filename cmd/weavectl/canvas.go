package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"weave/api/internal/config"
	"weave/api/internal/identity"
	"weave/api/internal/ops"
	"weave/api/internal/queue"
	"weave/api/internal/store"
)

func newEnqueueCommand() *cobra.Command {
	var (
		tenant      uint32
		threadText  string
		opJSON      string
		opFile      string
		requestedBy string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Submit a canvas operation to the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, err := identity.ParseThreadID(threadText)
			if err != nil {
				return err
			}

			raw := []byte(opJSON)
			if opFile != "" {
				if raw, err = os.ReadFile(opFile); err != nil {
					return err
				}
			}
			if len(raw) == 0 {
				return fmt.Errorf("one of --op or --op-file is required")
			}
			op, err := ops.DecodeOp(raw)
			if err != nil {
				return err
			}
			if err := ops.ValidateOp(op); err != nil {
				return err
			}

			cfg := config.Load()
			q, err := queue.New(cfg.RedisURL, cfg.QueueKey)
			if err != nil {
				return err
			}
			defer q.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := q.Enqueue(ctx, ops.Envelope{
				TenantScope: tenant,
				ThreadID:    threadID,
				RequestedBy: requestedBy,
				Op:          op,
			}); err != nil {
				return err
			}
			fmt.Printf("enqueued %s for thread %s\n", op.OpType(), threadID)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&tenant, "tenant", 0, "tenant scope (required)")
	cmd.Flags().StringVar(&threadText, "thread", "", "thread id (required)")
	cmd.Flags().StringVar(&opJSON, "op", "", "operation JSON")
	cmd.Flags().StringVar(&opFile, "op-file", "", "path to operation JSON")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", `originator: "ai" or a user id`)
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func newShowCommand() *cobra.Command {
	var (
		tenant     uint32
		threadText string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a thread's stored canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, err := identity.ParseThreadID(threadText)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			cfg := config.Load()
			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			canvasStore := store.NewCanvasStore(db, cfg.LockTimeout)
			state, err := canvasStore.LoadCanvas(ctx, tenant, threadID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&tenant, "tenant", 0, "tenant scope (required)")
	cmd.Flags().StringVar(&threadText, "thread", "", "thread id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func newThreadCommand() *cobra.Command {
	var (
		tenant         uint32
		collectionText string
		title          string
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Provision a thread row (the canvas is created lazily)",
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, err := identity.ParseCollectionID(collectionText)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			cfg := config.Load()
			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			threadID := identity.ThreadID(identity.MustNew(identity.Thread, tenant))
			canvasStore := store.NewCanvasStore(db, cfg.LockTimeout)
			if err := canvasStore.CreateThread(ctx, store.ThreadRow{
				ID:           threadID,
				TenantScope:  tenant,
				CollectionID: collectionID,
				Title:        title,
			}); err != nil {
				return err
			}
			fmt.Println(threadID)
			return nil
		},
	}
	create.Flags().Uint32Var(&tenant, "tenant", 0, "tenant scope (required)")
	create.Flags().StringVar(&collectionText, "collection", "", "collection id (required)")
	create.Flags().StringVar(&title, "title", "", "thread title")
	_ = create.MarkFlagRequired("tenant")
	_ = create.MarkFlagRequired("collection")

	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage thread rows",
	}
	cmd.AddCommand(create)
	return cmd
}
