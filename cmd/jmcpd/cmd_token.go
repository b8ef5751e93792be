package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/server"
)

var (
	tokenFile        string
	tokenID          string
	tokenDescription string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens for the streamable-http transport",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenID == "" {
			return fmt.Errorf("token ID required: use --id <token-id>")
		}
		store := server.NewTokenStore(tokenFile)
		token, err := store.Generate(tokenID, tokenDescription)
		if err != nil {
			return err
		}
		fmt.Println("Generated new token:")
		fmt.Printf("  ID: %s\n", tokenID)
		fmt.Printf("  Token: %s\n", token)
		fmt.Println("\nSave this token securely - it won't be shown again!")
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens (values are never shown)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := server.NewTokenStore(tokenFile)
		infos, err := store.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No tokens found")
			return nil
		}
		fmt.Printf("%-20s %-40s %-25s\n", "ID", "Description", "Created")
		for _, info := range infos {
			fmt.Printf("%-20s %-40s %-25s\n", info.ID, info.Description, info.Created)
		}
		return nil
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenID == "" {
			return fmt.Errorf("token ID required: use --id <token-id>")
		}
		store := server.NewTokenStore(tokenFile)
		if err := store.Revoke(tokenID); err != nil {
			return err
		}
		fmt.Printf("Token %q has been revoked\n", tokenID)
		return nil
	},
}

func init() {
	tokenCmd.PersistentFlags().StringVar(&tokenFile, "tokens-file", server.DefaultTokensPath, "Token file path")

	for _, cmd := range []*cobra.Command{tokenGenerateCmd, tokenRevokeCmd} {
		cmd.Flags().StringVar(&tokenID, "id", "", "Token identifier")
	}
	tokenGenerateCmd.Flags().StringVar(&tokenDescription, "description", "", "Token description")

	tokenCmd.AddCommand(tokenGenerateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
}
