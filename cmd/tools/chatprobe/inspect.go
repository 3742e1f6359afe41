package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/model/wire"
	"github.com/zhouzirui/whats-eat/backend/internal/payload"
	"github.com/zhouzirui/whats-eat/backend/internal/render"
	"github.com/zhouzirui/whats-eat/backend/internal/transcript"
)

func newNormalizeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a raw payload (file or stdin) into restaurant cards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			result := payload.NormalizeJSON(data)
			if result == nil {
				return fmt.Errorf("no restaurant cards found in input")
			}

			out := cmd.OutOrStdout()
			if format != formatText {
				return writeStructured(out, format, result)
			}
			if result.Rationale != "" {
				fmt.Fprintln(out, result.Rationale)
			}
			for _, card := range result.Cards {
				fmt.Fprintln(out, render.Card(card))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var (
		format     string
		summarizer string
	)
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Build the visible transcript from wire messages (a JSON array or {\"messages\": [...]})",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			raws, err := wireMessages(data)
			if err != nil {
				return err
			}

			messages := transcript.Present(transcript.NewBuilder(summarizer).Build(raws))
			out := cmd.OutOrStdout()
			if format != formatText {
				return writeStructured(out, format, messages)
			}
			fmt.Fprint(out, render.Snapshot(chat.Snapshot{Status: chat.StatusReady, Messages: messages}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&summarizer, "summarizer", transcript.DefaultSummarizerNode, "node whose messages are shown")
	return cmd
}

// wireMessages accepts a bare array, a thread state ({"values":{"messages":...}})
// or an update ({"messages":...}).
func wireMessages(data []byte) ([]wire.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	list := root
	if !root.IsArray() {
		list = root.Get("values.messages")
		if !list.Exists() {
			list = root.Get("messages")
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("input holds no message list")
	}

	var raws []wire.RawMessage
	for _, item := range list.Array() {
		raws = append(raws, wire.RawMessage(item.Raw))
	}
	return raws, nil
}
