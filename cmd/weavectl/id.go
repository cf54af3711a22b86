package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weave/api/internal/identity"
)

func newIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Mint and inspect packed identifiers",
	}
	cmd.AddCommand(newIDNewCommand(), newIDInspectCommand())
	return cmd
}

func newIDNewCommand() *cobra.Command {
	var tenant uint32

	cmd := &cobra.Command{
		Use:   "new <entity>",
		Short: "Mint an id for an entity, scoped to a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := identity.Entity(args[0])
			if !identity.Known(entity) {
				return fmt.Errorf("unknown entity %q (known: %v)", args[0], identity.Entities())
			}
			id, err := identity.New(entity, tenant)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&tenant, "tenant", 0, "tenant scope (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newIDInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <id>",
		Short: "Decode the tenant, entity, and timestamp packed into an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			tenant, err := identity.TenantScope(id)
			if err != nil {
				return err
			}
			entity, err := identity.EntityOf(id)
			if err != nil {
				return err
			}
			if entity == "" {
				entity = "(unregistered)"
			}
			ts, err := identity.Timestamp(id)
			if err != nil {
				return err
			}
			fmt.Printf("tenant:  %d\nentity:  %s\ncreated: %s\n", tenant, entity, ts.Format("2006-01-02T15:04:05.000Z07:00"))
			return nil
		},
	}
}
