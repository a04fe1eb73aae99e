package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
	"github.com/kilianp07/gridsim/infra/logger"
)

var decodeFirst, decodeLast int

var decodeCmd = &cobra.Command{
	Use:   "decode <dir>",
	Short: "Decode the result files of a directory without running the solver",
	Args:  cobra.ExactArgs(1),
	RunE:  decodeDir,
}

func init() {
	decodeCmd.Flags().IntVar(&decodeFirst, "first", 0, "first variant")
	decodeCmd.Flags().IntVar(&decodeLast, "last", 0, "last variant")
	rootCmd.AddCommand(decodeCmd)
}

func decodeDir(cmd *cobra.Command, args []string) error {
	r := variant.Range{First: decodeFirst, Last: decodeLast}
	if err := r.Validate(); err != nil {
		return err
	}
	rs := result.NewResultSet(r.First, r.Len())
	stats := result.NewDecoder(logger.New("decoder")).ReadChunk(args[0], r, rs)
	series := rs.Finalize(nil)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "variants %s: %d decoded, %d missing, %d invalid, %d values\n",
		r, stats.Decoded, stats.Missing, stats.Invalid, stats.Values)
	return writeSeriesTable(w, series)
}

func writeSeriesTable(w io.Writer, series []timeseries.Series) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tVALUES\tTAGS")
	for _, s := range series {
		meta := s.Metadata()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", meta.Name, meta.Type, validCount(s), formatTags(meta.Tags))
	}
	return tw.Flush()
}

func validCount(s timeseries.Series) int {
	n := 0
	switch v := s.(type) {
	case *timeseries.DoubleSeries:
		for _, p := range v.Points() {
			if p.Valid {
				n++
			}
		}
	case *timeseries.StringSeries:
		for _, p := range v.Points() {
			if p.Valid {
				n++
			}
		}
	}
	return n
}

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		out += k + "=" + tags[k]
	}
	return out
}
