package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/whats-eat/backend/internal/config"
	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/render"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/factory"
	chatService "github.com/zhouzirui/whats-eat/backend/internal/service/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/service/geocode"
)

type chatOptions struct {
	messages  []string
	latitude  float64
	longitude float64
	address   string
	stream    bool
	format    string
}

func newChatCmd() *cobra.Command {
	opts := chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open a session against the configured runtime and chat",
		Long: `Open a session and send each --message in order, or read one message per
line from stdin when no --message is given. Type /reset to start over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cmd.Flags().Changed("stream") {
				opts.stream = cfg.Runtime.Stream
			}

			rt, err := factory.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			hint, err := resolveHint(cmd, cfg, opts)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd, rt, cfg.Runtime, hint, opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.messages, "message", "m", nil, "message to send (repeatable)")
	cmd.Flags().Float64Var(&opts.latitude, "lat", 0, "latitude attached to every turn")
	cmd.Flags().Float64Var(&opts.longitude, "lng", 0, "longitude attached to every turn")
	cmd.Flags().StringVar(&opts.address, "address", "", "address to geocode and attach to every turn")
	cmd.Flags().BoolVar(&opts.stream, "stream", true, "stream runs instead of polling (defaults to LANGGRAPH_STREAM)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}

func resolveHint(cmd *cobra.Command, cfg *config.Config, opts chatOptions) (*chatService.LocationHint, error) {
	if opts.address != "" {
		client := geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.APIKey, cfg.Geocode.Timeout)
		coords, err := client.Geocode(cmd.Context(), opts.address)
		if err != nil {
			return nil, err
		}
		return &chatService.LocationHint{
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,
			Source:    coords.Source,
			Label:     coords.FormattedAddress,
		}, nil
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		return &chatService.LocationHint{Latitude: opts.latitude, Longitude: opts.longitude, Source: "manual"}, nil
	}
	return nil, nil
}

func runChat(ctx context.Context, cmd *cobra.Command, rt runtime.Runtime, rtCfg config.RuntimeConfig, hint *chatService.LocationHint, opts chatOptions) error {
	controller := chatService.NewController(rt, chatService.NewAssistantHandle(rtCfg.GraphID), chatService.Options{
		Stream:         opts.stream,
		SummarizerNode: rtCfg.SummarizerNode,
	})

	out := cmd.OutOrStdout()
	progress := cmd.ErrOrStderr()
	if opts.format == formatText {
		unsubscribe := controller.Subscribe(statusPrinter(progress))
		defer unsubscribe()
	}

	if err := controller.Initialize(ctx); err != nil {
		return err
	}

	send := func(text string) error {
		if strings.TrimSpace(text) == "/reset" {
			return controller.Reset(ctx)
		}
		err := controller.SendMessage(ctx, text, hint)
		if opts.format == formatText {
			fmt.Fprint(out, latestTurn(controller.Snapshot()))
		}
		return err
	}

	if len(opts.messages) > 0 {
		for _, text := range opts.messages {
			if err := send(text); err != nil {
				return err
			}
		}
	} else if err := readLines(cmd.InOrStdin(), send, progress); err != nil {
		return err
	}

	if opts.format != formatText {
		return writeStructured(out, opts.format, controller.Snapshot())
	}
	return nil
}

// readLines sends every non-empty line. Turn failures are reported and the
// loop continues; the session is reset so the next line can be sent.
func readLines(in io.Reader, send func(string) error, progress io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := send(line); err != nil {
			fmt.Fprintf(progress, "error: %v\n", err)
			if resetErr := send("/reset"); resetErr != nil {
				return resetErr
			}
		}
	}
	return scanner.Err()
}

// statusPrinter prints a line whenever the status or active node changes.
func statusPrinter(w io.Writer) func(chat.Snapshot) {
	var (
		mu   sync.Mutex
		last string
	)
	return func(s chat.Snapshot) {
		line := render.Status(s)
		mu.Lock()
		defer mu.Unlock()
		if line == last {
			return
		}
		last = line
		fmt.Fprintln(w, line)
	}
}

// latestTurn renders the messages from the last user turn onwards.
func latestTurn(s chat.Snapshot) string {
	start := 0
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == chat.RoleUser {
			start = i
			break
		}
	}

	var b strings.Builder
	for _, m := range s.Messages[start:] {
		b.WriteString(render.Message(m))
		b.WriteString("\n")
	}
	if s.Error != "" {
		b.WriteString(render.Status(s))
		b.WriteString(": ")
		b.WriteString(s.Error)
		b.WriteString("\n")
	}
	return b.String()
}
