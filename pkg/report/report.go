// Package report writes duplicate clusters as a fact table with one row
// per member file.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/dupescan/pkg/dedupe"
)

const dateLayout = "2006-01-02"

var columns = []string{"cluster", "kind", "size", "path", "date", "digest"}

type Options struct {
	Unit Unit
	// Color highlights cluster headers in text reports.
	Color bool
}

// Row is one member of one cluster.
type Row struct {
	Cluster int    `json:"cluster" yaml:"cluster"`
	Kind    string `json:"kind" yaml:"kind"`
	Size    string `json:"size" yaml:"size"`
	Path    string `json:"path" yaml:"path"`
	Date    string `json:"date" yaml:"date"`
	Digest  string `json:"digest" yaml:"digest"`
}

func (r Row) fields() []string {
	return []string{fmt.Sprint(r.Cluster), r.Kind, r.Size, r.Path, r.Date, r.Digest}
}

// Rows flattens clusters; cluster numbers start at 1.
func Rows(clusters []dedupe.Cluster, opts Options) []Row {
	var rows []Row
	for i, c := range clusters {
		for _, m := range c.Members {
			rows = append(rows, Row{
				Cluster: i + 1,
				Kind:    string(c.Kind),
				Size:    opts.Unit.FormatSize(c.Size),
				Path:    m.Path,
				Date:    m.Modified.Format(dateLayout),
				Digest:  c.Digest,
			})
		}
	}
	return rows
}

type document struct {
	Clusters []clusterDoc `json:"clusters" yaml:"clusters"`
}

type clusterDoc struct {
	Cluster     int      `json:"cluster" yaml:"cluster"`
	Kind        string   `json:"kind" yaml:"kind"`
	Size        string   `json:"size" yaml:"size"`
	Digest      string   `json:"digest" yaml:"digest"`
	Date        string   `json:"date" yaml:"date"`
	Reclaimable string   `json:"reclaimable" yaml:"reclaimable"`
	Members     []string `json:"members" yaml:"members"`
}

func newDocument(clusters []dedupe.Cluster, opts Options) document {
	doc := document{Clusters: make([]clusterDoc, 0, len(clusters))}
	for i, c := range clusters {
		cd := clusterDoc{
			Cluster:     i + 1,
			Kind:        string(c.Kind),
			Size:        opts.Unit.FormatSize(c.Size),
			Digest:      c.Digest,
			Date:        c.Timestamp().Format(dateLayout),
			Reclaimable: opts.Unit.FormatSize(c.Reclaimable()),
		}
		for _, m := range c.Members {
			cd.Members = append(cd.Members, m.Path)
		}
		doc.Clusters = append(doc.Clusters, cd)
	}
	return doc
}

func Write(w io.Writer, format Format, clusters []dedupe.Cluster, opts Options) error {
	switch format {
	case FormatCSV, FormatTSV:
		cw := csv.NewWriter(w)
		if format == FormatTSV {
			cw.Comma = '\t'
		}
		if err := cw.Write(columns); err != nil {
			return errors.Wrap(err, "write header")
		}
		for _, r := range Rows(clusters, opts) {
			if err := cw.Write(r.fields()); err != nil {
				return errors.Wrap(err, "write row")
			}
		}
		cw.Flush()
		return errors.Wrap(cw.Error(), "flush")

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(newDocument(clusters, opts)), "encode json")

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(clusters, opts)); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "close yaml encoder")

	case FormatText:
		return writeText(w, clusters, opts)

	default:
		return errors.Errorf("unsupported report format %q", format)
	}
}

func writeText(w io.Writer, clusters []dedupe.Cluster, opts Options) error {
	header := color.New(color.FgCyan, color.Bold)
	if opts.Color {
		header.EnableColor()
	} else {
		header.DisableColor()
	}

	for i, c := range clusters {
		if _, err := fmt.Fprintf(w, "%s\n", header.Sprintf("#%d %s %s x%d  %s",
			i+1, c.Kind, opts.Unit.FormatSize(c.Size), len(c.Members), c.Digest)); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, m := range c.Members {
			fmt.Fprintf(tw, "  %s\t%s\n", m.Modified.Format(dateLayout), m.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// WriteFile writes the report to path, appending the format's extension
// when path has none, and returns the path written.
func WriteFile(path string, format Format, clusters []dedupe.Cluster, opts Options) (string, error) {
	if filepath.Ext(path) == "" {
		path += format.Ext()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "create report directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create report")
	}

	if err := Write(f, format, clusters, opts); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "write report %s", path)
	}

	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close report %s", path)
	}

	return path, nil
}
