package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/vareditor/internal/config"
	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/testdata"
)

var (
	openNew     bool
	forceConfig bool
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		chats, err := e.rt.Conversations(ctx)
		if err != nil {
			return err
		}
		active, _ := e.rt.CurrentConversationID()
		for _, c := range chats {
			marker := " "
			if c.ID == active {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s\n", marker, c.ID, c.Name)
		}
		return nil
	},
}

var chatsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		chat, err := e.rt.NewConversation(ctx, name)
		if err != nil {
			return err
		}
		if openNew {
			if err := e.rt.OpenConversation(ctx, chat.ID); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), chat.ID)
		return nil
	},
}

var chatsUseCmd = &cobra.Command{
	Use:   "use <id-or-name>",
	Short: "Make a conversation active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		chats, err := e.rt.Conversations(ctx)
		if err != nil {
			return err
		}
		chat, err := findChat(chats, args[0])
		if err != nil {
			return err
		}
		if err := e.rt.OpenConversation(ctx, chat.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "now using %s\n", chat.Name)
		return nil
	},
}

var chatsCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Leave no conversation active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		return e.rt.CloseConversation(ctx)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create sample conversations and variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		res, err := testdata.Seed(ctx, testdata.Repos{
			Settings: repository.NewSettingsRepo(e.db),
			Chats:    repository.NewChatRepo(e.db),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d conversations and %d global variables\n", len(res.Chats), res.Globals)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path()
		if exists(path) && !forceConfig {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Defaults()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	chatsNewCmd.Flags().BoolVar(&openNew, "open", false, "Make the new conversation active")
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing file")

	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsNewCmd)
	chatsCmd.AddCommand(chatsUseCmd)
	chatsCmd.AddCommand(chatsCloseCmd)
	configCmd.AddCommand(configInitCmd)
}

// findChat matches an exact id first, then an exact name.
func findChat(chats []repository.Chat, ref string) (repository.Chat, error) {
	for _, c := range chats {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range chats {
		if c.Name == ref {
			return c, nil
		}
	}
	names := make([]string, 0, len(chats))
	for _, c := range chats {
		names = append(names, c.Name)
	}
	if s := closest(ref, names); s != "" {
		return repository.Chat{}, fmt.Errorf("%w: %s (did you mean %q?)", host.ErrConversationNotFound, ref, s)
	}
	return repository.Chat{}, fmt.Errorf("%w: %s", host.ErrConversationNotFound, ref)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
