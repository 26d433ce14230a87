package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aretw0/webclip"
	"github.com/aretw0/webclip/pkg/core"
)

var (
	captureURL     string
	captureTitle   string
	captureContent string
	captureTags    []string
	captureImages  []string
	capturePage    string
	captureFull    bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a link or a selection",
	Long: `Capture a page into the vault. With --content the capture is a selection
(quoted under the title), otherwise a link. --full marks the content as the
whole page. The destination defaults to today's journal entry.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if captureURL == "" && captureTitle == "" {
			fmt.Fprintln(os.Stderr, "Error: --url or --title is required")
			cmd.Usage()
			os.Exit(1)
		}

		payload := buildPayload()
		err := withSession(cmd.Context(), func(sess *webclip.Session) error {
			reply, err := sess.Capture(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Captured!"), infoStyle.Render(reply.RecordGUID))
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Capture failed:"), err)
			os.Exit(1)
		}
	},
}

func buildPayload() core.CapturePayload {
	mode := core.InferMode(captureContent)
	if captureFull {
		mode = core.ModeFullPage
	}
	tags := append([]string{}, cfg.DefaultTags...)
	tags = append(tags, captureTags...)
	return core.CapturePayload{
		Mode:        mode,
		URL:         captureURL,
		Title:       captureTitle,
		Content:     captureContent,
		Images:      captureImages,
		Tags:        tags,
		Destination: cfg.destination(capturePage),
	}
}

func init() {
	captureCmd.Flags().StringVar(&captureURL, "url", "", "Page URL")
	captureCmd.Flags().StringVar(&captureTitle, "title", "", "Page title")
	captureCmd.Flags().StringVar(&captureContent, "content", "", "Selected text (or the page text with --full)")
	captureCmd.Flags().StringSliceVar(&captureTags, "tag", nil, "Tag to attach (repeatable)")
	captureCmd.Flags().StringSliceVar(&captureImages, "image", nil, "Image URL to attach (repeatable)")
	captureCmd.Flags().StringVar(&capturePage, "page", "", "Destination record guid instead of the journal")
	captureCmd.Flags().BoolVar(&captureFull, "full", false, "Treat --content as the whole page")
	rootCmd.AddCommand(captureCmd)
}
