package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lake-explorer/internal/app"
	"lake-explorer/internal/domain"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <namespace.table>",
		Short: "Show the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTableRef(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app.App) error {
				res, err := a.Service.Preview(cmd.Context(), id, limit)
				if err != nil {
					return err
				}
				return render(cmd, res, func(w io.Writer) {
					printResult(w, res)
					fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d rows, engine %s)\n", res.RowCount, res.Engine)
				})
			})
		},
	}
	addLimitFlag(cmd.Flags(), &limit, 10, "Rows to show")
	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <namespace.table> [sql]",
		Short: "Run read-only SQL against a table",
		Long: `Run read-only SQL against a table, referenced in the SQL by its bare or
namespace-qualified name. SQL is read from stdin when omitted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTableRef(args[0])
			if err != nil {
				return err
			}
			sql := ""
			if len(args) == 2 {
				sql = args[1]
			} else if sql, err = readStdin(cmd); err != nil {
				return err
			}
			if sql == "" {
				return fmt.Errorf("provide SQL as an argument or on stdin")
			}

			return opts.withApp(cmd, func(a *app.App) error {
				out, err := a.Service.ExecuteQuery(cmd.Context(), id, sql, limit)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == outputJSON {
					if err := printJSON(cmd.OutOrStdout(), out); err != nil {
						return err
					}
				} else if out.Success {
					printResult(cmd.OutOrStdout(), *out.Result)
					fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d rows, engine %s)\n", out.Result.RowCount, out.Engine)
				}
				if !out.Success {
					return fmt.Errorf("query failed: %s", out.Error)
				}
				return nil
			})
		},
	}
	addLimitFlag(cmd.Flags(), &limit, 100, "Maximum rows to return")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <namespace.table>",
		Short: "Compute per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTableRef(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app.App) error {
				st, err := a.Service.Statistics(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd, st, func(w io.Writer) {
					printStatistics(w, st)
				})
			})
		},
	}
}

func printResult(w io.Writer, res domain.TabularResult) {
	rows := make([][]string, len(res.Data))
	for i, row := range res.Data {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = formatCell(v)
		}
	}
	printTable(w, res.Columns, rows)
}

func printStatistics(w io.Writer, st domain.TableStatistics) {
	fmt.Fprintf(w, "total rows: %d, distinct rows: %d, engine: %s\n", st.TotalRows, st.DistinctRows, st.Engine)
	if st.Note != "" {
		fmt.Fprintln(w, st.Note)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(st.ColumnStatistics))
	for n := range st.ColumnStatistics {
		names = append(names, n)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, n := range names {
		c := st.ColumnStatistics[n]
		if c.Error != "" {
			rows[i] = []string{n, "-", "-", "-", "-", c.Error}
			continue
		}
		rows[i] = []string{
			n,
			strconv.FormatInt(c.Count, 10),
			strconv.FormatInt(c.DistinctCount, 10),
			strconv.FormatInt(c.NullCount, 10),
			strconv.FormatFloat(c.NullPercentage, 'f', 2, 64),
			"",
		}
	}
	printTable(w, []string{"column", "count", "distinct", "nulls", "null_%", "error"}, rows)
}

// readStdin returns piped stdin, or "" when stdin is a terminal.
func readStdin(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// addLimitFlag registers the shared --limit/-n row cap.
func addLimitFlag(fs *pflag.FlagSet, p *int, def int, usage string) {
	fs.IntVarP(p, "limit", "n", def, usage)
}
