// Command treedelta diffs and patches tree-shaped documents: markup,
// JSON and JsonML. Families are detected from file extensions via
// their MIME types; patches are written as XML by default or as
// JsonML with -j.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/treedelta/treedelta"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "treedelta:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treedelta",
		Short:         "context-aware diff & patch for tree-shaped documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDiffCmd(), newPatchCmd())
	return root
}

func newDiffCmd() *cobra.Command {
	var (
		xmlFormat  bool
		jsonFormat bool
		debug      bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "diff <original> <changed>",
		Short: "compute a patch turning the original document into the changed one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if xmlFormat && jsonFormat {
				return fmt.Errorf("-x and -j are mutually exclusive")
			}

			fam, a, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			famB, b, err := loadDocument(args[1])
			if err != nil {
				return err
			}
			if fam.Name != famB.Name {
				return fmt.Errorf("cannot diff %s against %s", fam.Name, famB.Name)
			}

			var st treedelta.Stats
			dd := treedelta.New(treedelta.OptionSetStats(&st))
			patch, err := dd.Diff(context.Background(), fam, a, b)
			if err != nil {
				return err
			}

			if debug {
				treedelta.FormatPretty(os.Stderr, patch, false)
				fmt.Fprint(os.Stderr, treedelta.FormatPrettyStats(&st))
			}

			var out string
			if jsonFormat {
				out, err = treedelta.MarshalPatchJSON(patch, fam)
			} else {
				out, err = treedelta.MarshalPatchXML(patch, fam)
			}
			if err != nil {
				return err
			}
			return writeOutput(output, out)
		},
	}
	cmd.Flags().BoolVarP(&xmlFormat, "xml", "x", false, "write the patch in XML format (default)")
	cmd.Flags().BoolVarP(&jsonFormat, "json", "j", false, "write the patch in JsonML format")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "print the operations and stats to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the patch to a file instead of stdout")
	return cmd
}

func newPatchCmd() *cobra.Command {
	var (
		debug      bool
		bestEffort bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "patch <patch> <target>",
		Short: "apply a patch to a target document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fam, doc, err := loadDocument(args[1])
			if err != nil {
				return err
			}

			patchText, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var patch *treedelta.Patch
			if strings.HasPrefix(strings.TrimSpace(string(patchText)), "<") {
				patch, err = treedelta.UnmarshalPatchXML(string(patchText), fam)
			} else {
				patch, err = treedelta.UnmarshalPatchJSON(string(patchText), fam)
			}
			if err != nil {
				return err
			}

			if debug {
				treedelta.FormatPretty(os.Stderr, patch, false)
			}

			opts := []treedelta.Option{}
			if bestEffort {
				opts = append(opts, treedelta.OptionBestEffort())
			}
			dd := treedelta.New(opts...)
			patched, session, err := dd.Apply(context.Background(), fam, doc, patch)
			if err != nil {
				return err
			}
			if skipped := session.Skipped(); skipped > 0 {
				fmt.Fprintf(os.Stderr, "treedelta: skipped %d unresolvable operations\n", skipped)
			}

			out, err := fam.Payload.SerializeToString(patched)
			if err != nil {
				return err
			}
			return writeOutput(output, out)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "print the operations to stderr")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "skip unresolvable operations instead of aborting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	return cmd
}

// loadDocument reads a file and parses it into the family its MIME
// type selects. YAML files are decoded into the JSON family.
func loadDocument(path string) (treedelta.Family, interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return treedelta.Family{}, nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return treedelta.Family{}, nil, err
		}
		return treedelta.JSON(), v, nil
	case ".jsonml":
		fam := treedelta.JSONML()
		doc, err := fam.Payload.ParseString(string(data))
		return fam, doc, err
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		switch ext {
		case ".json":
			mimeType = "application/json"
		case ".xml", ".html", ".htm", ".xhtml":
			mimeType = "application/xml"
		}
	}
	fam, err := treedelta.FamilyForMIME(mimeType)
	if err != nil {
		return treedelta.Family{}, nil, err
	}
	doc, err := fam.Payload.ParseString(string(data))
	return fam, doc, err
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Println(content)
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o644)
}
