package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
	gatewayx "github.com/tanpawarit/clinical-assistant/gateway"
	configx "github.com/tanpawarit/clinical-assistant/pkg/config"
	litellmx "github.com/tanpawarit/clinical-assistant/pkg/litellm"
)

const errorReply = "Sorry, an error occurred while generating the response."

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient-data tool gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, err := configx.New[gatewayx.Config]("GATEWAY")
			if err != nil {
				return err
			}
			svc, err := newPatientService(ctx)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			specs, exec := toolx.Specs(), toolx.NewExecutor(svc)
			return gatewayx.NewServer(specs, exec, *conf, gatewayx.WithRegistry(reg)).Start(ctx)
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive clinical assistant chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			return runChat(ctx, o, uuid.NewString(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, err = o.HandleMessage(ctx, uuid.NewString(), strings.Join(args, " "), func(chunk string) {
				fmt.Fprint(out, chunk)
			})
			fmt.Fprintln(out)
			return err
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, _, err := newToolGateway(cmd.Context())
			if err != nil {
				return err
			}
			specs, err := gateway.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			printTools(cmd.OutOrStdout(), specs)
			return nil
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models served by the LiteLLM proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := configx.New[litellmx.Config]("LITELLM")
			if err != nil {
				return err
			}
			ids, err := litellmx.ListModels(cmd.Context(), litellmx.NewClient(*conf))
			if err != nil {
				return err
			}
			for _, id := range ids {
				marker := " "
				if id == conf.Model {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
			}
			return nil
		},
	}
}

func printTools(w io.Writer, specs []contractx.ToolSpec) {
	for _, spec := range specs {
		fmt.Fprintf(w, "%s\n    %s\n", spec.Name, spec.Desc)
		for _, p := range spec.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			line := fmt.Sprintf("    - %s (%s, %s)", p.Name, p.Type, req)
			if p.Default != nil {
				line += fmt.Sprintf(" default %v", p.Default)
			}
			fmt.Fprintln(w, line)
		}
	}
}

type chatSession interface {
	Greet(ctx context.Context, sessionID string) (string, error)
	HandleMessage(ctx context.Context, sessionID string, text string, onToken contractx.TokenSink) (string, error)
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) ([]statex.Message, error)
}

// runChat is the terminal REPL: /reset, /history and /exit are commands,
// everything else is a question.
func runChat(ctx context.Context, chat chatSession, sessionID string, in io.Reader, out io.Writer) error {
	greet := func() error {
		greeting, err := chat.Greet(ctx, sessionID)
		if err != nil {
			return err
		}
		if greeting != "" {
			fmt.Fprintf(out, "%s\n\n", greeting)
		}
		return nil
	}
	if err := greet(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := chat.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			if err := greet(); err != nil {
				return err
			}
			continue
		case "/history":
			history, err := chat.History(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, m := range history {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
			}
			continue
		}

		streamed := false
		_, err := chat.HandleMessage(ctx, sessionID, line, func(chunk string) {
			streamed = true
			fmt.Fprint(out, chunk)
		})
		if streamed {
			fmt.Fprintln(out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorReply)
		}
		fmt.Fprintln(out)
	}
}
