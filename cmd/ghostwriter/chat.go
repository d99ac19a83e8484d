package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/service/chat"
	"github.com/spf13/cobra"
)

func init() {
	cmdRoot.AddCommand(cmdChat())
	cmdRoot.AddCommand(cmdAsk())
}

func cmdChat() *cobra.Command {
	return &cobra.Command{
		Use:          "chat",
		Short:        "Serve the lyrics chat over a websocket",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			server, err := rt.container.NewChatServer(cmd.Context())
			if err != nil {
				return err
			}
			return server.ListenAndServe(cmd.Context())
		},
	}
}

func cmdAsk() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ask <question>",
		Short:        "Ask a single question and print the answer",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			question := strings.Join(args, " ")

			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			if serverURL != "" {
				return askRemote(cmd.Context(), cmd, rt, serverURL, question)
			}

			rag, err := rt.container.NewRAG(cmd.Context())
			if err != nil {
				return err
			}
			answer, err := rag.Ask(cmd.Context(), nil, question)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			printSources(cmd, answer.Sources)
			return nil
		},
	}
	cmd.Flags().String("server", "", "websocket URL of a running chat server, e.g. ws://localhost:8080/ws")
	return cmd
}

func askRemote(ctx context.Context, cmd *cobra.Command, rt *stageEnv, serverURL, question string) error {
	client := chat.NewClient(serverURL, rt.logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	out := cmd.OutOrStdout()
	done, err := client.Ask(ctx, question, func(content string) {
		fmt.Fprint(out, content)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	printSources(cmd, done.Sources)
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.Source) {
	out := cmd.OutOrStdout()
	for _, s := range sources {
		fmt.Fprintf(out, "  - %s / %s (%.3f)\n", s.ArtistName, s.SongName, s.Score)
	}
}
