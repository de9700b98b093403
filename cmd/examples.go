package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/agriclassify/config"
	"github.com/otherjamesbrown/agriclassify/pkg/examples"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

// exampleImageReport describes one example image.
type exampleImageReport struct {
	Name      string `json:"name" yaml:"name"`
	MediaType string `json:"media_type" yaml:"media_type"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
	Problem   string `json:"problem,omitempty" yaml:"problem,omitempty"`
}

// exampleLabelReport describes one label of an example set.
type exampleLabelReport struct {
	Label   string               `json:"label" yaml:"label"`
	Images  []exampleImageReport `json:"images" yaml:"images"`
	Problem string               `json:"problem,omitempty" yaml:"problem,omitempty"`
}

// NewExamplesCommand creates the examples command group.
func NewExamplesCommand(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}

	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Inspect example sets",
		Long: `Inspect example sets used to bias classification.

An example set directory has one subdirectory per label, each holding up to
10 images of that produce type. Labels are compared case-insensitively.`,
	}

	var output string
	check := &cobra.Command{
		Use:   "check <dir>",
		Short: "Validate an example set directory",
		Long: `Inspect an example set directory the way 'agri classify --examples-dir'
loads it and report its labels and images. Images that cannot be sent to the
recognition service are flagged, as are labels the example set would reject
(duplicates differing only in case, empty labels, more than 10 images).`,
		Example: `  agri examples check ./examples
  agri examples check ./examples -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := config.OutputFormat(output)
			if output == "" {
				format = config.OutputFormatText
			}
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", output)
			}

			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			report, err := checkExampleDir(dir)
			if err != nil {
				return err
			}
			return writeOutput(out, format, report, func(w io.Writer) error {
				return printExampleReport(w, report)
			})
		},
	}
	check.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, or yaml")

	cmd.AddCommand(check)
	return cmd
}

// checkExampleDir inspects every label directory under dir. Unlike
// examples.LoadDir it keeps going past bad files so all problems are listed.
func checkExampleDir(dir string) ([]exampleLabelReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read examples dir: %w", err)
	}

	set := examples.New()
	var report []exampleLabelReport
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		labelDir := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(labelDir)
		if err != nil {
			return nil, fmt.Errorf("read label dir %s: %w", labelDir, err)
		}

		lr := exampleLabelReport{Label: entry.Name(), Images: []exampleImageReport{}}
		var images []produce.Image
		valid := true
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			img, err := produce.LoadImageFile(filepath.Join(labelDir, f.Name()))
			if err != nil {
				return nil, err
			}
			images = append(images, img)

			ir := exampleImageReport{Name: img.DisplayName(), MediaType: img.MediaType}
			if err := img.ValidateFormat(); err != nil {
				ir.Problem = err.Error()
				valid = false
			} else if w, h, err := img.Dimensions(); err != nil {
				ir.Problem = fmt.Sprintf("cannot decode image: %v", err)
			} else {
				ir.Width, ir.Height = w, h
			}
			lr.Images = append(lr.Images, ir)
		}

		if valid {
			if err := set.Add(lr.Label, images); err != nil {
				lr.Problem = err.Error()
			}
		}
		report = append(report, lr)
	}
	return report, nil
}

func printExampleReport(w io.Writer, report []exampleLabelReport) error {
	if len(report) == 0 {
		fmt.Fprintln(w, "No labels found.")
		return nil
	}

	problems := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tIMAGE\tTYPE\tSIZE")
	for _, lr := range report {
		if lr.Problem != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t! %s\n", lr.Label, lr.Problem)
			problems++
		}
		for i, img := range lr.Images {
			label := ""
			if i == 0 && lr.Problem == "" {
				label = lr.Label
			}
			size := fmt.Sprintf("%dx%d", img.Width, img.Height)
			if img.Problem != "" {
				size = "! " + img.Problem
				problems++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, img.Name, img.MediaType, size)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d label(s)", len(report))
	if problems > 0 {
		fmt.Fprintf(w, ", %d problem(s)", problems)
	}
	fmt.Fprintln(w)
	return nil
}
