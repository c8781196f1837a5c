package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"expenses/internal/core"
	"expenses/internal/services"
)

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage the category tree",
	}
	cmd.AddCommand(newCategoryAddCmd(a), newCategoryTreeCmd(a))
	return cmd
}

func newCategoryAddCmd(a *app) *cobra.Command {
	var (
		name, description string
		parentID          int64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			saved, err := a.svc.Categories.CreateCategory(cmd.Context(), core.Category{
				UserID:      userID,
				Name:        name,
				Description: description,
				ParentID:    parentID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category #%d: %s\n", saved.ID, saved.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Category name")
	cmd.Flags().StringVar(&description, "desc", "", "Description")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent category id (0 for a root)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoryTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			roots, err := a.svc.Categories.Tree(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), roots, 0)
			return nil
		},
	}
}

func printTree(out io.Writer, nodes []*services.CategoryNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(out, "%s#%d %s\n", strings.Repeat("  ", depth), n.Category.ID, n.Category.Name)
		printTree(out, n.Children, depth+1)
	}
}
