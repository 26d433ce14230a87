package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/webclip"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find destination pages",
	Long:  `Search records by name, falling back to full-text search. Queries shorter than two characters return nothing.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		err := withSession(cmd.Context(), func(sess *webclip.Session) error {
			pages, err := sess.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, p := range pages {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.GUID, p.Name, p.Collection)
			}
			return w.Flush()
		})
		if err != nil {
			fatal("Search failed", err)
		}
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags [query]",
	Short: "List tags used in the vault",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var query string
		if len(args) > 0 {
			query = args[0]
		}
		err := withSession(cmd.Context(), func(sess *webclip.Session) error {
			tags, err := sess.Tags(cmd.Context(), query)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Println(t)
			}
			return nil
		})
		if err != nil {
			fatal("Listing tags failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tagsCmd)
}
