package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/danmuck/pubd/internal/client"
	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// connect resolves the config file plus flag overrides into a client.
func connect(cmd *cobra.Command, flags *rootFlags) (*client.Client, error) {
	cfg, err := loadClientConfig(flags.Config, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if flags.Server != "" {
		cfg.Server = flags.Server
	}
	if flags.Publisher != "" {
		cfg.Publisher = flags.Publisher
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return client.New(cfg.Server, cfg.Publisher, cfg.Timeout), nil
}

func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the objects published for this client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URI\tHASH")
			for _, el := range list.Elements {
				fmt.Fprintf(tw, "%s\t%s\n", el.URI, el.Hash)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s objects\n", humanize.Comma(int64(len(list.Elements))))
			return nil
		},
	}
}

func newPublishCmd(flags *rootFlags) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "publish <uri> <file>",
		Short: "Publish a new object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := rsync.Parse(args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			c, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			if err := c.Publish(cmd.Context(), pdu.PublishQuery{Elements: []pdu.QueryElement{
				pdu.Publish{Tag: tag, URI: uri, Content: content},
			}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s (%s)\n", uri, humanize.IBytes(uint64(len(content))))
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Element tag echoed in error reports")
	return cmd
}

func newUpdateCmd(flags *rootFlags) *cobra.Command {
	var tag, hash string
	cmd := &cobra.Command{
		Use:   "update <uri> <file>",
		Short: "Replace an existing object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := rsync.Parse(args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			c, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			current, err := resolveHash(cmd.Context(), c, uri, hash)
			if err != nil {
				return err
			}
			if err := c.Publish(cmd.Context(), pdu.PublishQuery{Elements: []pdu.QueryElement{
				pdu.Update{Tag: tag, URI: uri, Hash: current, Content: content},
			}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", uri, humanize.IBytes(uint64(len(content))))
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Element tag echoed in error reports")
	cmd.Flags().StringVar(&hash, "hash", "", "Hash of the object being replaced (looked up when empty)")
	return cmd
}

func newWithdrawCmd(flags *rootFlags) *cobra.Command {
	var tag, hash string
	cmd := &cobra.Command{
		Use:   "withdraw <uri> [file]",
		Short: "Withdraw an object",
		Long:  "Withdraw an object. The current hash comes from --hash, from the local copy in file, or from the server's list.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := rsync.Parse(args[0])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				if hash != "" {
					return fmt.Errorf("pass either a file or --hash, not both")
				}
				content, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				hash = pdu.HashOf(content).String()
			}
			c, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			current, err := resolveHash(cmd.Context(), c, uri, hash)
			if err != nil {
				return err
			}
			if err := c.Publish(cmd.Context(), pdu.PublishQuery{Elements: []pdu.QueryElement{
				pdu.Withdraw{Tag: tag, URI: uri, Hash: current},
			}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s\n", uri)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Element tag echoed in error reports")
	cmd.Flags().StringVar(&hash, "hash", "", "Hash of the object being withdrawn")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a publication message offline and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			msg, err := protocol.Decode(f)
			if err != nil {
				return fmt.Errorf("%s error (%s): %w", protocol.LayerOf(err), protocol.KindOf(err), err)
			}
			return describe(cmd.OutOrStdout(), msg)
		},
	}
}

// resolveHash parses raw, or asks the server for the object's current hash.
func resolveHash(ctx context.Context, c *client.Client, uri rsync.URI, raw string) (pdu.Hash, error) {
	if raw != "" {
		return pdu.ParseHash(raw)
	}
	list, err := c.List(ctx)
	if err != nil {
		return pdu.Hash{}, err
	}
	for _, el := range list.Elements {
		if el.URI.String() == uri.String() {
			return el.Hash, nil
		}
	}
	return pdu.Hash{}, fmt.Errorf("no object published at %s", uri)
}

func describe(w io.Writer, msg protocol.Message) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "type\t%s\n", msg.Class())
	fmt.Fprintf(tw, "payload\t%s\n", msg.Variant())
	switch m := msg.(type) {
	case protocol.PublishQuery:
		for _, el := range m.Body.Elements {
			switch e := el.(type) {
			case pdu.Publish:
				fmt.Fprintf(tw, "publish\t%s\t%s\n", e.URI, humanize.IBytes(uint64(len(e.Content))))
			case pdu.Update:
				fmt.Fprintf(tw, "update\t%s\t%s\t%s\n", e.URI, humanize.IBytes(uint64(len(e.Content))), e.Hash)
			case pdu.Withdraw:
				fmt.Fprintf(tw, "withdraw\t%s\t\t%s\n", e.URI, e.Hash)
			}
		}
	case protocol.ListQuery:
		if m.Body.Tag != "" {
			fmt.Fprintf(tw, "tag\t%s\n", m.Body.Tag)
		}
	case protocol.SuccessReply:
		if m.Body.Tag != "" {
			fmt.Fprintf(tw, "tag\t%s\n", m.Body.Tag)
		}
	case protocol.ListReply:
		for _, el := range m.Body.Elements {
			fmt.Fprintf(tw, "object\t%s\t%s\n", el.URI, el.Hash)
		}
	}
	return tw.Flush()
}
