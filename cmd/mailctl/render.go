package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

func (cl *cli) render(l listing, footer bool) error {
	if cl.format == formatYAML {
		return writeYAML(cl.out, l.page)
	}
	if err := writeTable(cl.out, l.header, l.rows); err != nil {
		return err
	}
	if footer {
		_, err := fmt.Fprintln(cl.out, summary(l))
		return err
	}
	return nil
}

func summary(l listing) string {
	noun := l.label + "s"
	if l.total == 1 {
		noun = l.label
	}
	if l.pages == 0 {
		return fmt.Sprintf("no %ss", l.label)
	}
	return fmt.Sprintf("page %d of %d, %s %s", l.number, l.pages, humanize.Comma(l.total), noun)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// writeYAML writes v as block-style YAML under its JSON field names, in
// declaration order.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// blockStyle drops the flow and quoting styles a JSON document decodes with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
