package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
)

var validateFlags struct {
	strict   bool
	sanitize bool
}

// errDegraded is returned in strict mode when a file decoded with diagnostics
var errDegraded = errors.New("flow decoded with degradations")

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Decode flow documents and report diagnostics",
	Long: `Decodes each flow JSON file the way an SDK would and prints every
degradation applied. Files that cannot be decoded at all fail the command;
with --strict any degradation does.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "Fail on any degradation")
	validateCmd.Flags().BoolVar(&validateFlags.sanitize, "sanitize", false, "Strip markup from text fields")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var opts []flow.DecoderOption
	if validateFlags.sanitize {
		opts = append(opts, flow.WithSanitizer())
	}
	dec := flow.NewDecoder(opts...)
	out := cmd.OutOrStdout()

	var errs []error
	for _, path := range args {
		if err := validateFile(out, dec, path, validateFlags.strict); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func validateFile(w io.Writer, dec *flow.Decoder, path string, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := dec.Parse(data)
	if err != nil {
		fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
		return err
	}

	status := "OK"
	if len(doc.Diagnostics) > 0 {
		status = "WARN"
	}
	fmt.Fprintf(w, "%s %s: %d screen(s), %d diagnostic(s)\n", status, path, len(doc.Screens), len(doc.Diagnostics))
	for _, d := range doc.Diagnostics {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	printOutline(w, doc)

	if strict && len(doc.Diagnostics) > 0 {
		return errDegraded
	}
	return nil
}

func printOutline(w io.Writer, doc *flow.Document) {
	for i, s := range doc.Screens {
		fmt.Fprintf(w, "  [%d] screen %s (%s)", i, s.ID, s.Type)
		if len(s.Routes) > 0 {
			fmt.Fprintf(w, " routes=%d", len(s.Routes))
		}
		fmt.Fprintln(w)
		printElements(w, s.Elements, 2)
	}
}

func printElements(w io.Writer, elements []flow.Element, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, el := range elements {
		fmt.Fprintf(w, "%s%s %s", indent, el.Kind(), el.ElementID())
		switch t := el.(type) {
		case flow.Collector:
			if t.ResponseKey() != "" {
				fmt.Fprintf(w, " -> %s", t.ResponseKey())
			}
		case *flow.Unknown:
			if t.Tag != "" {
				fmt.Fprintf(w, " (%s)", t.Tag)
			}
		}
		fmt.Fprintln(w)
		if p, ok := el.(flow.Parent); ok {
			printElements(w, p.ChildElements(), depth+1)
		}
	}
}
